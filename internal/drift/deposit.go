package drift

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var depositDiscriminator = Discriminator("global", "deposit")

// DepositAccounts are the accounts the deposit instruction touches.
type DepositAccounts struct {
	Authority        solana.PublicKey
	SubAccountID     uint16
	MarketIndex      uint16
	UserTokenAccount solana.PublicKey
	// Oracle of the spot market, passed as a remaining account.
	Oracle solana.PublicKey
}

// NewDepositInstruction builds deposit(market_index, amount, reduce_only).
func NewDepositInstruction(a DepositAccounts, amount uint64, reduceOnly bool) (solana.Instruction, error) {
	if amount == 0 {
		return nil, fmt.Errorf("drift: deposit amount must be > 0")
	}
	if a.Authority.IsZero() || a.UserTokenAccount.IsZero() || a.Oracle.IsZero() {
		return nil, fmt.Errorf("drift: deposit requires authority, token account and oracle")
	}

	state, err := StatePDA()
	if err != nil {
		return nil, err
	}
	user, err := UserPDA(a.Authority, a.SubAccountID)
	if err != nil {
		return nil, err
	}
	userStats, err := UserStatsPDA(a.Authority)
	if err != nil {
		return nil, err
	}
	vault, err := SpotMarketVaultPDA(a.MarketIndex)
	if err != nil {
		return nil, err
	}
	spotMarket, err := SpotMarketPDA(a.MarketIndex)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	buf.Write(depositDiscriminator[:])
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint16(a.MarketIndex, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(amount, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteBool(reduceOnly); err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(state),
		solana.Meta(user).WRITE(),
		solana.Meta(userStats).WRITE(),
		solana.Meta(a.Authority).SIGNER(),
		solana.Meta(vault).WRITE(),
		solana.Meta(a.UserTokenAccount).WRITE(),
		solana.Meta(solana.TokenProgramID),
		// remaining accounts
		solana.Meta(a.Oracle),
		solana.Meta(spotMarket).WRITE(),
	}
	return solana.NewInstruction(ProgramID, accounts, buf.Bytes()), nil
}
