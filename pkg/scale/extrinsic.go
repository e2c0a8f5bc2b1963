package scale

import (
	"fmt"
	"strconv"
)

// ExtrinsicTypes holds the registry ids needed to decode an extrinsic
// envelope, resolved once per runtime version.
type ExtrinsicTypes struct {
	Call      TypeID
	Address   TypeID
	Signature TypeID
}

// ResolveExtrinsicTypes locates the call, address and signature types by
// their well-known path suffixes.
func ResolveExtrinsicTypes(reg *Registry) (ExtrinsicTypes, error) {
	var out ExtrinsicTypes
	call, ok := reg.FindCallType()
	if !ok {
		return out, fmt.Errorf("call type: %w", ErrUnresolvedType)
	}
	addr, ok := reg.FindByPathSuffix("MultiAddress")
	if !ok {
		return out, fmt.Errorf("MultiAddress type: %w", ErrUnresolvedType)
	}
	sig, ok := reg.FindByPathSuffix("MultiSignature")
	if !ok {
		return out, fmt.Errorf("MultiSignature type: %w", ErrUnresolvedType)
	}
	out.Call = call
	out.Address = addr
	out.Signature = sig
	return out, nil
}

// ExtrinsicSignature is the decoded signer block of a signed extrinsic.
type ExtrinsicSignature struct {
	Signer    any    `json:"signer"`
	Signature any    `json:"signature"`
	Era       any    `json:"era"`
	Nonce     string `json:"nonce"`
	Tip       string `json:"tip"`
}

// Extrinsic is one decoded extrinsic: the restructured call plus an optional
// signature block.
type Extrinsic struct {
	Method    any                 `json:"method"`
	Args      any                 `json:"args"`
	Signature *ExtrinsicSignature `json:"signature,omitempty"`
}

// DecodeExtrinsic decodes one length-prefixed extrinsic envelope: version
// byte, optional signature block, then the call via the call restructurer.
func (d *Decoder) DecodeExtrinsic(cur *Cursor, types ExtrinsicTypes) (*Extrinsic, error) {
	length, err := cur.CompactUint()
	if err != nil {
		return nil, fmt.Errorf("extrinsic length: %w", err)
	}
	body, err := cur.Take(int(length))
	if err != nil {
		return nil, err
	}
	bc := NewCursor(body)

	version, err := bc.Byte()
	if err != nil {
		return nil, err
	}
	signed := version&0x80 != 0
	if v := version & 0x7f; v != 4 {
		return nil, fmt.Errorf("unsupported extrinsic version %d", v)
	}

	out := &Extrinsic{}
	if signed {
		sig, err := d.decodeSignatureBlock(bc, types)
		if err != nil {
			return nil, fmt.Errorf("signature block: %w", err)
		}
		out.Signature = sig
	}

	call, err := d.Decode(bc, types.Call)
	if err != nil {
		return nil, fmt.Errorf("call: %w", err)
	}
	if obj, ok := call.(map[string]any); ok {
		out.Method = obj["method"]
		out.Args = obj["args"]
	} else {
		out.Method = call
	}
	return out, nil
}

func (d *Decoder) decodeSignatureBlock(cur *Cursor, types ExtrinsicTypes) (*ExtrinsicSignature, error) {
	signer, err := d.Decode(cur, types.Address)
	if err != nil {
		return nil, fmt.Errorf("signer: %w", err)
	}
	signature, err := d.Decode(cur, types.Signature)
	if err != nil {
		return nil, fmt.Errorf("signature: %w", err)
	}
	era, err := decodeEra(cur)
	if err != nil {
		return nil, fmt.Errorf("era: %w", err)
	}
	nonce, err := cur.CompactBig()
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	tip, err := cur.CompactBig()
	if err != nil {
		return nil, fmt.Errorf("tip: %w", err)
	}
	return &ExtrinsicSignature{
		Signer:    signer,
		Signature: signature,
		Era:       era,
		Nonce:     nonce.String(),
		Tip:       tip.String(),
	}, nil
}

// decodeEra decodes the one-byte immortal / two-byte mortal era encoding.
func decodeEra(cur *Cursor) (any, error) {
	b0, err := cur.Byte()
	if err != nil {
		return nil, err
	}
	if b0 == 0 {
		return map[string]any{"immortalEra": "0x00"}, nil
	}
	b1, err := cur.Byte()
	if err != nil {
		return nil, err
	}
	encoded := uint64(b0) | uint64(b1)<<8
	period := uint64(2) << (encoded % 16)
	quantize := period >> 12
	if quantize < 1 {
		quantize = 1
	}
	phase := (encoded >> 4) * quantize
	return map[string]any{"mortalEra": []any{
		strconv.FormatUint(period, 10),
		strconv.FormatUint(phase, 10),
	}}, nil
}
