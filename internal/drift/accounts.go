package drift

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	userStatsDiscriminator  = Discriminator("account", "UserStats")
	spotMarketDiscriminator = Discriminator("account", "SpotMarket")
)

type UserFees struct {
	TotalFeePaid               uint64
	TotalFeeRebate             uint64
	TotalTokenDiscount         uint64
	TotalRefereeDiscount       uint64
	TotalReferrerReward        uint64
	CurrentEpochReferrerReward uint64
}

// UserStats is the leading, stable part of the on-chain UserStats account.
// Fields after ReferrerStatus are not decoded.
type UserStats struct {
	Authority                  solana.PublicKey
	Referrer                   solana.PublicKey
	Fees                       UserFees
	NextEpochTs                int64
	MakerVolume30d             uint64
	TakerVolume30d             uint64
	FillerVolume30d            uint64
	LastMakerVolume30dTs       int64
	LastTakerVolume30dTs       int64
	LastFillerVolume30dTs      int64
	IfStakedQuoteAssetAmount   uint64
	NumberOfSubAccounts        uint16
	NumberOfSubAccountsCreated uint16
	ReferrerStatus             uint8
}

// SpotMarketHeader holds the first fields of a SpotMarket account.
type SpotMarketHeader struct {
	Pubkey solana.PublicKey
	Oracle solana.PublicKey
	Mint   solana.PublicKey
	Vault  solana.PublicKey
	Name   [32]byte
}

func (h *SpotMarketHeader) MarketName() string {
	return string(bytes.TrimRight(h.Name[:], " \x00"))
}

func DecodeUserStats(data []byte) (*UserStats, error) {
	var s UserStats
	if err := decodeAccount(data, userStatsDiscriminator, &s); err != nil {
		return nil, fmt.Errorf("drift: user stats: %w", err)
	}
	return &s, nil
}

func DecodeSpotMarketHeader(data []byte) (*SpotMarketHeader, error) {
	var h SpotMarketHeader
	if err := decodeAccount(data, spotMarketDiscriminator, &h); err != nil {
		return nil, fmt.Errorf("drift: spot market: %w", err)
	}
	return &h, nil
}

func decodeAccount(data []byte, disc [8]byte, out any) error {
	if len(data) < 8 {
		return fmt.Errorf("account data too short (%d bytes)", len(data))
	}
	if !bytes.Equal(data[:8], disc[:]) {
		return fmt.Errorf("discriminator mismatch")
	}
	return bin.NewBorshDecoder(data[8:]).Decode(out)
}
