package scale

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	xSig64 TypeID = iota + 200
	xMultiSignature
)

func extrinsicRegistry() *Registry {
	reg := fixtureRegistry()
	reg.Define(xSig64, Type{Def: TypeDef{Kind: KindArray, Len: 64, Elem: tU8}})
	reg.Define(xMultiSignature, Type{
		Path: []string{"sp_runtime", "MultiSignature"},
		Def: TypeDef{Kind: KindVariant, Variants: []Variant{
			{Name: "Ed25519", Index: 0, Fields: []Field{{Type: xSig64}}},
			{Name: "Sr25519", Index: 1, Fields: []Field{{Type: xSig64}}},
		}},
	})
	return reg
}

// envelope wraps an extrinsic body in its compact length prefix.
func envelope(body []byte) []byte {
	return concat(compact(uint64(len(body))), body)
}

func TestResolveExtrinsicTypes(t *testing.T) {
	reg := extrinsicRegistry()

	types, err := ResolveExtrinsicTypes(reg)
	require.NoError(t, err)
	assert.Equal(t, tRuntimeCall, types.Call)
	assert.Equal(t, tMultiAddress, types.Address)
	assert.Equal(t, xMultiSignature, types.Signature)

	_, err = ResolveExtrinsicTypes(NewRegistry())
	assert.ErrorIs(t, err, ErrUnresolvedType)
}

func TestDecodeUnsignedExtrinsic(t *testing.T) {
	reg := extrinsicRegistry()
	d := NewDecoder(reg, 42, nil)
	types, err := ResolveExtrinsicTypes(reg)
	require.NoError(t, err)

	body := concat([]byte{0x04}, transferCallBytes(1000))
	xt, err := d.DecodeExtrinsic(NewCursor(envelope(body)), types)
	require.NoError(t, err)

	assert.Nil(t, xt.Signature)
	assert.Equal(t, map[string]any{
		"pallet": "Balances",
		"method": "transferAllowDeath",
	}, xt.Method)
	args := xt.Args.(map[string]any)
	assert.Equal(t, "1000", args["value"])
}

func TestDecodeSignedExtrinsic(t *testing.T) {
	reg := extrinsicRegistry()
	d := NewDecoder(reg, 42, nil)
	types, err := ResolveExtrinsicTypes(reg)
	require.NoError(t, err)

	sig := bytes.Repeat([]byte{0xab}, 64)
	body := concat(
		[]byte{0x84},          // signed, version 4
		[]byte{0}, alicePub,   // MultiAddress::Id(alice)
		[]byte{1}, sig,        // MultiSignature::Sr25519
		[]byte{0},             // immortal era
		compact(5), compact(0), // nonce, tip
		transferCallBytes(1000),
	)

	xt, err := d.DecodeExtrinsic(NewCursor(envelope(body)), types)
	require.NoError(t, err)

	require.NotNil(t, xt.Signature)
	assert.Equal(t, map[string]any{"id": aliceSubstrate}, xt.Signature.Signer)
	assert.Equal(t, map[string]any{"sr25519": "0x" + strings.Repeat("ab", 64)}, xt.Signature.Signature)
	assert.Equal(t, map[string]any{"immortalEra": "0x00"}, xt.Signature.Era)
	assert.Equal(t, "5", xt.Signature.Nonce)
	assert.Equal(t, "0", xt.Signature.Tip)

	assert.Equal(t, map[string]any{
		"pallet": "Balances",
		"method": "transferAllowDeath",
	}, xt.Method)
}

func TestDecodeMortalEra(t *testing.T) {
	reg := extrinsicRegistry()
	d := NewDecoder(reg, 42, nil)
	types, err := ResolveExtrinsicTypes(reg)
	require.NoError(t, err)

	sig := bytes.Repeat([]byte{0xab}, 64)
	body := concat(
		[]byte{0x84},
		[]byte{0}, alicePub,
		[]byte{1}, sig,
		[]byte{0x25, 0x03}, // mortal: period 64, phase 50
		compact(5), compact(0),
		transferCallBytes(1),
	)

	xt, err := d.DecodeExtrinsic(NewCursor(envelope(body)), types)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"mortalEra": []any{"64", "50"}}, xt.Signature.Era)
}

func TestDecodeExtrinsicRejectsUnknownVersion(t *testing.T) {
	reg := extrinsicRegistry()
	d := NewDecoder(reg, 42, nil)
	types, err := ResolveExtrinsicTypes(reg)
	require.NoError(t, err)

	body := concat([]byte{0x03}, transferCallBytes(1))
	_, err = d.DecodeExtrinsic(NewCursor(envelope(body)), types)
	assert.ErrorContains(t, err, "version")
}
