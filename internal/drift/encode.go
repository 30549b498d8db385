package drift

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// Discriminator returns the 8-byte anchor prefix for "<namespace>:<name>".
func Discriminator(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

var signedMsgDiscriminator = Discriminator("global", "SignedMsgOrderParamsMessage")

func (p OrderParams) MarshalWithEncoder(enc *bin.Encoder) error {
	for _, b := range []uint8{uint8(p.OrderType), uint8(p.MarketType), uint8(p.Direction), p.UserOrderID} {
		if err := enc.WriteUint8(b); err != nil {
			return err
		}
	}
	if err := enc.WriteUint64(p.BaseAssetAmount, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint64(p.Price, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint16(p.MarketIndex, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteBool(p.ReduceOnly); err != nil {
		return err
	}
	if err := enc.WriteUint8(uint8(p.PostOnly)); err != nil {
		return err
	}
	if err := enc.WriteUint8(p.BitFlags); err != nil {
		return err
	}
	if err := writeOptionI64(enc, p.MaxTs); err != nil {
		return err
	}
	if err := enc.WriteOption(p.TriggerPrice != nil); err != nil {
		return err
	}
	if p.TriggerPrice != nil {
		if err := enc.WriteUint64(*p.TriggerPrice, bin.LE); err != nil {
			return err
		}
	}
	if err := enc.WriteUint8(uint8(p.TriggerCondition)); err != nil {
		return err
	}
	if err := enc.WriteOption(p.OraclePriceOffset != nil); err != nil {
		return err
	}
	if p.OraclePriceOffset != nil {
		if err := enc.WriteInt32(*p.OraclePriceOffset, bin.LE); err != nil {
			return err
		}
	}
	if err := enc.WriteOption(p.AuctionDuration != nil); err != nil {
		return err
	}
	if p.AuctionDuration != nil {
		if err := enc.WriteUint8(*p.AuctionDuration); err != nil {
			return err
		}
	}
	if err := writeOptionI64(enc, p.AuctionStartPrice); err != nil {
		return err
	}
	return writeOptionI64(enc, p.AuctionEndPrice)
}

func (p *OrderParams) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	var u8s [4]uint8
	for i := range u8s {
		if u8s[i], err = dec.ReadUint8(); err != nil {
			return err
		}
	}
	p.OrderType, p.MarketType, p.Direction, p.UserOrderID =
		OrderType(u8s[0]), MarketType(u8s[1]), PositionDirection(u8s[2]), u8s[3]

	if p.BaseAssetAmount, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if p.Price, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if p.MarketIndex, err = dec.ReadUint16(bin.LE); err != nil {
		return err
	}
	if p.ReduceOnly, err = dec.ReadBool(); err != nil {
		return err
	}
	postOnly, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	p.PostOnly = PostOnlyParam(postOnly)
	if p.BitFlags, err = dec.ReadUint8(); err != nil {
		return err
	}
	if p.MaxTs, err = readOptionI64(dec); err != nil {
		return err
	}

	ok, err := dec.ReadOption()
	if err != nil {
		return err
	}
	if ok {
		v, err := dec.ReadUint64(bin.LE)
		if err != nil {
			return err
		}
		p.TriggerPrice = &v
	}

	cond, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	p.TriggerCondition = OrderTriggerCondition(cond)

	if ok, err = dec.ReadOption(); err != nil {
		return err
	}
	if ok {
		v, err := dec.ReadInt32(bin.LE)
		if err != nil {
			return err
		}
		p.OraclePriceOffset = &v
	}

	if ok, err = dec.ReadOption(); err != nil {
		return err
	}
	if ok {
		v, err := dec.ReadUint8()
		if err != nil {
			return err
		}
		p.AuctionDuration = &v
	}

	if p.AuctionStartPrice, err = readOptionI64(dec); err != nil {
		return err
	}
	p.AuctionEndPrice, err = readOptionI64(dec)
	return err
}

func (m SignedMsgOrderParamsMessage) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := m.Params.MarshalWithEncoder(enc); err != nil {
		return err
	}
	if err := enc.WriteUint16(m.SubAccountID, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint64(m.Slot, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteBytes(m.UUID[:], false); err != nil {
		return err
	}
	if err := writeTrigger(enc, m.TakeProfit); err != nil {
		return err
	}
	return writeTrigger(enc, m.StopLoss)
}

func (m *SignedMsgOrderParamsMessage) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if err = m.Params.UnmarshalWithDecoder(dec); err != nil {
		return err
	}
	if m.SubAccountID, err = dec.ReadUint16(bin.LE); err != nil {
		return err
	}
	if m.Slot, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	raw, err := dec.ReadNBytes(len(m.UUID))
	if err != nil {
		return err
	}
	copy(m.UUID[:], raw)
	if m.TakeProfit, err = readTrigger(dec); err != nil {
		return err
	}
	m.StopLoss, err = readTrigger(dec)
	return err
}

// Encode returns discriminator || borsh(m), the bytes that are hex-encoded
// and signed for Swift.
func (m SignedMsgOrderParamsMessage) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(signedMsgDiscriminator[:])
	if err := m.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("drift: encode signed msg: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSignedMsgOrderParamsMessage parses the output of Encode.
func DecodeSignedMsgOrderParamsMessage(b []byte) (*SignedMsgOrderParamsMessage, error) {
	if len(b) < 8 || !bytes.Equal(b[:8], signedMsgDiscriminator[:]) {
		return nil, fmt.Errorf("drift: signed msg discriminator mismatch")
	}
	var m SignedMsgOrderParamsMessage
	if err := m.UnmarshalWithDecoder(bin.NewBorshDecoder(b[8:])); err != nil {
		return nil, fmt.Errorf("drift: decode signed msg: %w", err)
	}
	return &m, nil
}

func writeOptionI64(enc *bin.Encoder, v *int64) error {
	if err := enc.WriteOption(v != nil); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	return enc.WriteInt64(*v, bin.LE)
}

func readOptionI64(dec *bin.Decoder) (*int64, error) {
	ok, err := dec.ReadOption()
	if err != nil || !ok {
		return nil, err
	}
	v, err := dec.ReadInt64(bin.LE)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func writeTrigger(enc *bin.Encoder, t *SignedMsgTriggerOrderParams) error {
	if err := enc.WriteOption(t != nil); err != nil {
		return err
	}
	if t == nil {
		return nil
	}
	if err := enc.WriteUint64(t.TriggerPrice, bin.LE); err != nil {
		return err
	}
	return enc.WriteUint64(t.BaseAssetAmount, bin.LE)
}

func readTrigger(dec *bin.Decoder) (*SignedMsgTriggerOrderParams, error) {
	ok, err := dec.ReadOption()
	if err != nil || !ok {
		return nil, err
	}
	var t SignedMsgTriggerOrderParams
	if t.TriggerPrice, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	if t.BaseAssetAmount, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	return &t, nil
}
