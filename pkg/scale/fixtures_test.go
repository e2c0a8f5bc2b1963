package scale

import (
	"encoding/binary"
	"encoding/hex"
)

// compact encodes n in SCALE compact form.
func compact(n uint64) []byte {
	switch {
	case n < 1<<6:
		return []byte{byte(n << 2)}
	case n < 1<<14:
		out := make([]byte, 2)
		binary.LittleEndian.PutUint16(out, uint16(n<<2|0b01))
		return out
	case n < 1<<30:
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, uint32(n<<2|0b10))
		return out
	default:
		le := make([]byte, 8)
		binary.LittleEndian.PutUint64(le, n)
		size := 8
		for size > 4 && le[size-1] == 0 {
			size--
		}
		return append([]byte{byte(size-4)<<2 | 0b11}, le[:size]...)
	}
}

func u32le(n uint32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, n)
	return out
}

func u64le(n uint64) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, n)
	return out
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Well-known development account public key.
var alicePub = mustHex("d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d")

// Type ids shared by the fixture registry.
const (
	tU8 TypeID = iota + 1
	tU16
	tU32
	tU64
	tU128
	tU256
	tI8
	tI128
	tBool
	tStr
	tBytes32
	tAccountID
	tVecU8
	tVecU16
	tVecU32
	tBalanceStatus
	tOptionU32
	tTransferRecord
	tPairU32U64
	tCompactU128
	tVote
	tEmpty
	tMultiAddress
	tRuntimeCall
	tBalancesCall
	tUtilityCall
	tVecCall
	tCompactU64
	tBitSeq
)

// fixtureRegistry builds a registry shaped like a trimmed runtime type
// catalog, covering every decoder branch the value tests exercise.
func fixtureRegistry() *Registry {
	reg := NewRegistry()

	prim := func(id TypeID, p Primitive) {
		reg.Define(id, Type{Def: TypeDef{Kind: KindPrimitive, Prim: p}})
	}
	prim(tU8, PrimU8)
	prim(tU16, PrimU16)
	prim(tU32, PrimU32)
	prim(tU64, PrimU64)
	prim(tU128, PrimU128)
	prim(tU256, PrimU256)
	prim(tI8, PrimI8)
	prim(tI128, PrimI128)
	prim(tBool, PrimBool)
	prim(tStr, PrimStr)

	reg.Define(tBytes32, Type{Def: TypeDef{Kind: KindArray, Len: 32, Elem: tU8}})
	reg.Define(tAccountID, Type{
		Path: []string{"sp_core", "crypto", "AccountId32"},
		Def:  TypeDef{Kind: KindComposite, Fields: []Field{{Type: tBytes32}}},
	})
	reg.Define(tVecU8, Type{Def: TypeDef{Kind: KindSequence, Elem: tU8}})
	reg.Define(tVecU16, Type{Def: TypeDef{Kind: KindSequence, Elem: tU16}})
	reg.Define(tVecU32, Type{Def: TypeDef{Kind: KindSequence, Elem: tU32}})

	reg.Define(tBalanceStatus, Type{
		Path: []string{"frame_support", "traits", "BalanceStatus"},
		Def: TypeDef{Kind: KindVariant, Variants: []Variant{
			{Name: "Free", Index: 0},
			{Name: "Reserved", Index: 1},
		}},
	})
	reg.Define(tOptionU32, Type{
		Path: []string{"Option"},
		Def: TypeDef{Kind: KindVariant, Variants: []Variant{
			{Name: "None", Index: 0},
			{Name: "Some", Index: 1, Fields: []Field{{Type: tU32}}},
		}},
	})
	reg.Define(tTransferRecord, Type{
		Path: []string{"pallet_demo", "TransferRecord"},
		Def: TypeDef{Kind: KindComposite, Fields: []Field{
			{Name: "who", Type: tAccountID},
			{Name: "free_balance", Type: tU128},
		}},
	})
	reg.Define(tPairU32U64, Type{Def: TypeDef{Kind: KindTuple, Tuple: []TypeID{tU32, tU64}}})
	reg.Define(tCompactU128, Type{Def: TypeDef{Kind: KindCompact, Elem: tU128}})
	reg.Define(tCompactU64, Type{Def: TypeDef{Kind: KindCompact, Elem: tU64}})
	reg.Define(tVote, Type{
		Path: []string{"pallet_democracy", "vote", "Vote"},
		Def:  TypeDef{Kind: KindComposite, Fields: []Field{{Type: tU8}}},
	})
	reg.Define(tEmpty, Type{
		Path: []string{"pallet_demo", "Placeholder"},
		Def:  TypeDef{Kind: KindComposite},
	})
	reg.Define(tBitSeq, Type{Def: TypeDef{Kind: KindBitSequence}})

	reg.Define(tMultiAddress, Type{
		Path: []string{"sp_runtime", "multiaddress", "MultiAddress"},
		Def: TypeDef{Kind: KindVariant, Variants: []Variant{
			{Name: "Id", Index: 0, Fields: []Field{{Type: tAccountID}}},
			{Name: "Address32", Index: 2, Fields: []Field{{Type: tBytes32}}},
		}},
	})
	reg.Define(tRuntimeCall, Type{
		Path: []string{"kusama_runtime", "RuntimeCall"},
		Def: TypeDef{Kind: KindVariant, Variants: []Variant{
			{Name: "Balances", Index: 5, Fields: []Field{{Type: tBalancesCall}}},
			{Name: "Utility", Index: 24, Fields: []Field{{Type: tUtilityCall}}},
		}},
	})
	reg.Define(tBalancesCall, Type{
		Path: []string{"pallet_balances", "pallet", "Call"},
		Def: TypeDef{Kind: KindVariant, Variants: []Variant{
			{Name: "transfer_allow_death", Index: 0, Fields: []Field{
				{Name: "dest", Type: tMultiAddress},
				{Name: "value", Type: tCompactU128},
			}},
			{Name: "force_unreserve", Index: 5, Fields: []Field{
				{Name: "who", Type: tMultiAddress},
				{Name: "amount", Type: tU128},
			}},
		}},
	})
	reg.Define(tUtilityCall, Type{
		Path: []string{"pallet_utility", "pallet", "Call"},
		Def: TypeDef{Kind: KindVariant, Variants: []Variant{
			{Name: "batch", Index: 0, Fields: []Field{
				{Name: "calls", Type: tVecCall},
			}},
		}},
	})
	reg.Define(tVecCall, Type{Def: TypeDef{Kind: KindSequence, Elem: tRuntimeCall}})

	return reg
}
