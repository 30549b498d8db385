// Package spl holds the SPL token helpers the tools need: ATA derivation and balance reads.
package spl

import (
	"context"
	"fmt"
	"strconv"

	projectrpc "github.com/aman-zulfiqar/drift-toolkit/internal/rpc"
	"github.com/gagliardetto/solana-go"
)

var (
	// SPL Associated Token Account program
	AssociatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

// FindAssociatedTokenAddress derives the ATA PDA for (owner, mint).
func FindAssociatedTokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	// Seeds: [owner, token_program, mint]
	ata, _, err := solana.FindProgramAddress(
		[][]byte{
			owner.Bytes(),
			solana.TokenProgramID.Bytes(),
			mint.Bytes(),
		},
		AssociatedTokenProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("spl: derive ATA: %w", err)
	}
	return ata, nil
}

type TokenBalanceReader interface {
	GetTokenAccountBalance(ctx context.Context, address string) (*projectrpc.TokenAmount, error)
}

// ATABalance returns the raw token amount in owner's ATA for mint. A missing
// ATA counts as zero.
func ATABalance(ctx context.Context, rpc TokenBalanceReader, owner, mint solana.PublicKey) (uint64, error) {
	ata, err := FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, err
	}

	amt, err := rpc.GetTokenAccountBalance(ctx, ata.String())
	if err != nil {
		if projectrpc.IsAccountNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("spl: balance of %s: %w", ata, err)
	}

	v, err := strconv.ParseUint(amt.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("spl: invalid token amount %q: %w", amt.Amount, err)
	}
	return v, nil
}
