package scale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Event fixture type ids, kept clear of the value fixture range.
const (
	ePhase TypeID = iota + 100
	eRuntimeEvent
	eSystemEvent
	eBalancesEvent
	eDispatchInfo
	eWeight
	eDispatchClass
	ePays
	eDispatchError
	eVecRecords
	eRecord
	eVecTopics
	eHash
)

func eventRegistry() *Registry {
	reg := fixtureRegistry()

	reg.Define(ePhase, Type{
		Path: []string{"frame_system", "Phase"},
		Def: TypeDef{Kind: KindVariant, Variants: []Variant{
			{Name: "ApplyExtrinsic", Index: 0, Fields: []Field{{Type: tU32}}},
			{Name: "Finalization", Index: 1},
			{Name: "Initialization", Index: 2},
			{Name: "Obsolete", Index: 3},
		}},
	})
	reg.Define(eRuntimeEvent, Type{
		Path: []string{"kusama_runtime", "RuntimeEvent"},
		Def: TypeDef{Kind: KindVariant, Variants: []Variant{
			{Name: "System", Index: 0, Fields: []Field{{Type: eSystemEvent}}},
			{Name: "Balances", Index: 5, Fields: []Field{{Type: eBalancesEvent}}},
		}},
	})
	reg.Define(eSystemEvent, Type{
		Path: []string{"frame_system", "pallet", "Event"},
		Def: TypeDef{Kind: KindVariant, Variants: []Variant{
			{Name: "ExtrinsicSuccess", Index: 0, Fields: []Field{
				{Name: "dispatch_info", Type: eDispatchInfo},
			}},
			{Name: "ExtrinsicFailed", Index: 1, Fields: []Field{
				{Name: "dispatch_error", Type: eDispatchError},
				{Name: "dispatch_info", Type: eDispatchInfo},
			}},
		}},
	})
	reg.Define(eBalancesEvent, Type{
		Path: []string{"pallet_balances", "pallet", "Event"},
		Def: TypeDef{Kind: KindVariant, Variants: []Variant{
			{Name: "Transfer", Index: 2, Fields: []Field{
				{Name: "from", Type: tAccountID},
				{Name: "to", Type: tAccountID},
				{Name: "amount", Type: tU128},
			}},
		}},
	})
	reg.Define(eDispatchInfo, Type{
		Path: []string{"frame_support", "dispatch", "DispatchInfo"},
		Def: TypeDef{Kind: KindComposite, Fields: []Field{
			{Name: "weight", Type: eWeight},
			{Name: "class", Type: eDispatchClass},
			{Name: "pays_fee", Type: ePays},
		}},
	})
	reg.Define(eWeight, Type{
		Path: []string{"sp_weights", "weight_v2", "Weight"},
		Def: TypeDef{Kind: KindComposite, Fields: []Field{
			{Name: "ref_time", Type: tCompactU64},
			{Name: "proof_size", Type: tCompactU64},
		}},
	})
	reg.Define(eDispatchClass, Type{
		Path: []string{"frame_support", "dispatch", "DispatchClass"},
		Def: TypeDef{Kind: KindVariant, Variants: []Variant{
			{Name: "Normal", Index: 0},
			{Name: "Operational", Index: 1},
			{Name: "Mandatory", Index: 2},
		}},
	})
	reg.Define(ePays, Type{
		Path: []string{"frame_support", "dispatch", "Pays"},
		Def: TypeDef{Kind: KindVariant, Variants: []Variant{
			{Name: "Yes", Index: 0},
			{Name: "No", Index: 1},
		}},
	})
	reg.Define(eDispatchError, Type{
		Path: []string{"sp_runtime", "DispatchError"},
		Def: TypeDef{Kind: KindVariant, Variants: []Variant{
			{Name: "CannotLookup", Index: 1},
			{Name: "BadOrigin", Index: 2},
		}},
	})
	reg.Define(eHash, Type{Def: TypeDef{Kind: KindArray, Len: 32, Elem: tU8}})
	reg.Define(eVecTopics, Type{Def: TypeDef{Kind: KindSequence, Elem: eHash}})
	reg.Define(eRecord, Type{
		Path: []string{"frame_system", "EventRecord"},
		Def: TypeDef{Kind: KindComposite, Fields: []Field{
			{Name: "phase", Type: ePhase},
			{Name: "event", Type: eRuntimeEvent},
			{Name: "topics", Type: eVecTopics},
		}},
	})
	reg.Define(eVecRecords, Type{Def: TypeDef{Kind: KindSequence, Elem: eRecord}})

	return reg
}

// dispatchInfoBytes encodes {weight: {refTime, proofSize}, class: Normal,
// paysFee: Yes}.
func dispatchInfoBytes(refTime, proofSize uint64) []byte {
	return concat(compact(refTime), compact(proofSize), []byte{0}, []byte{0})
}

func successRecordBytes(extrinsicIdx uint32) []byte {
	return concat(
		[]byte{0}, u32le(extrinsicIdx), // ApplyExtrinsic(idx)
		[]byte{0, 0}, // System::ExtrinsicSuccess
		dispatchInfoBytes(1200, 64),
		compact(0), // no topics
	)
}

func transferRecordBytes() []byte {
	amount := concat([]byte{0xe8, 0x03}, make([]byte, 14)) // 1000 LE
	return concat(
		[]byte{0}, u32le(1), // ApplyExtrinsic(1)
		[]byte{5, 2}, // Balances::Transfer
		alicePub, alicePub, amount,
		compact(0),
	)
}

func TestDecodeEvents(t *testing.T) {
	d := NewDecoder(eventRegistry(), 42, nil)

	input := concat(compact(2), successRecordBytes(0), transferRecordBytes())
	records, err := d.DecodeEvents(NewCursor(input), eVecRecords)
	require.NoError(t, err)
	require.Len(t, records, 2)

	success := records[0]
	assert.Equal(t, PhaseApplyExtrinsic, success.Phase.Kind)
	assert.Equal(t, uint32(0), success.Phase.Index)
	assert.Equal(t, "system", success.Pallet, "pallet name is lowercased")
	assert.Equal(t, "ExtrinsicSuccess", success.Event, "event name keeps exact case")
	require.Len(t, success.Fields, 1)
	assert.Equal(t, "DispatchInfo", success.Fields[0].TypeName)
	info := success.Fields[0].Value.(map[string]any)
	assert.Equal(t, map[string]any{"refTime": "1200", "proofSize": "64"}, info["weight"])
	assert.Equal(t, "normal", info["class"])
	assert.Equal(t, "yes", info["paysFee"])

	transfer := records[1]
	assert.Equal(t, "balances", transfer.Pallet)
	assert.Equal(t, "Transfer", transfer.Event)
	require.Len(t, transfer.Fields, 3)
	assert.Equal(t, "AccountId32", transfer.Fields[0].TypeName)
	assert.Equal(t, aliceSubstrate, transfer.Fields[0].Value)
	assert.Equal(t, "1000", transfer.Fields[2].Value)
}

func TestDecodeEventsSkipsMalformedRecord(t *testing.T) {
	d := NewDecoder(eventRegistry(), 42, nil)

	// The last record names pallet index 99, which does not exist. The two
	// records before it must survive.
	bad := concat([]byte{1}, []byte{99})
	input := concat(compact(3), successRecordBytes(0), transferRecordBytes(), bad)

	records, err := d.DecodeEvents(NewCursor(input), eVecRecords)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestDecodeEventsPhaseDefaults(t *testing.T) {
	d := NewDecoder(eventRegistry(), 42, nil)

	// An unrecognized phase variant name defaults to Finalization.
	input := concat(
		compact(1),
		[]byte{3},    // Phase::Obsolete
		[]byte{0, 0}, // System::ExtrinsicSuccess
		dispatchInfoBytes(1, 0),
		compact(0),
	)
	records, err := d.DecodeEvents(NewCursor(input), eVecRecords)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, PhaseFinalization, records[0].Phase.Kind)
}

func TestDecodeEventsPlainPhases(t *testing.T) {
	d := NewDecoder(eventRegistry(), 42, nil)

	for idx, want := range map[byte]PhaseKind{1: PhaseFinalization, 2: PhaseInitialization} {
		input := concat(
			compact(1),
			[]byte{idx},
			[]byte{0, 0},
			dispatchInfoBytes(1, 0),
			compact(0),
		)
		records, err := d.DecodeEvents(NewCursor(input), eVecRecords)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, want, records[0].Phase.Kind)
	}
}

func TestDecodeEventsRejectsWrongTopLevelShape(t *testing.T) {
	d := NewDecoder(eventRegistry(), 42, nil)

	_, err := d.DecodeEvents(NewCursor(compact(0)), eRecord)
	assert.Error(t, err)

	_, err = d.DecodeEvents(NewCursor(compact(0)), TypeID(9999))
	assert.ErrorIs(t, err, ErrUnresolvedType)
}
