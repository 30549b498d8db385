package drift

import (
	"encoding/binary"

	"github.com/aman-zulfiqar/drift-toolkit/internal/constants"
	"github.com/gagliardetto/solana-go"
)

var ProgramID = solana.MustPublicKeyFromBase58(constants.DriftProgramID)

func u16le(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func StatePDA() (solana.PublicKey, error) {
	pk, _, err := solana.FindProgramAddress([][]byte{[]byte("drift_state")}, ProgramID)
	return pk, err
}

func UserPDA(authority solana.PublicKey, subAccountID uint16) (solana.PublicKey, error) {
	pk, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("user"), authority.Bytes(), u16le(subAccountID)},
		ProgramID,
	)
	return pk, err
}

func UserStatsPDA(authority solana.PublicKey) (solana.PublicKey, error) {
	pk, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("user_stats"), authority.Bytes()},
		ProgramID,
	)
	return pk, err
}

func SpotMarketPDA(marketIndex uint16) (solana.PublicKey, error) {
	pk, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("spot_market"), u16le(marketIndex)},
		ProgramID,
	)
	return pk, err
}

func SpotMarketVaultPDA(marketIndex uint16) (solana.PublicKey, error) {
	pk, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("spot_market_vault"), u16le(marketIndex)},
		ProgramID,
	)
	return pk, err
}
