package wallet

import (
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// SignTx fills every signature slot owned by the wallet key. Jupiter swap
// transactions arrive with zeroed placeholder slots, which are overwritten.
func (w *Wallet) SignTx(tx *solana.Transaction) error {
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) < required {
		tx.Signatures = append(tx.Signatures, make([]solana.Signature, required-len(tx.Signatures))...)
	}

	var sig *solana.Signature
	slots := 0
	for i, key := range tx.Message.AccountKeys {
		if i >= required {
			break
		}
		if !key.Equals(w.pub) {
			continue
		}
		if sig == nil {
			s, err := w.priv.Sign(msg)
			if err != nil {
				return fmt.Errorf("sign transaction: %w", err)
			}
			sig = &s
		}
		tx.Signatures[i] = *sig
		slots++
	}
	if slots == 0 {
		return fmt.Errorf("sign transaction: %s is not a required signer", w.pub)
	}
	return nil
}

// DecodeTransaction parses a base64 wire transaction (legacy or v0), e.g. the
// swapTransaction returned by Jupiter.
func DecodeTransaction(b64 string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode tx base64: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal tx: %w", err)
	}
	return tx, nil
}

// EncodeTransaction serializes tx to base64 wire format.
func EncodeTransaction(tx *solana.Transaction) (string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
