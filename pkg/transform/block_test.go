package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paritytech/polkadot-rest-api-sub000/pkg/scale"
)

func TestBlockFromParts(t *testing.T) {
	header := HeaderParts{
		Number:         1234,
		Hash:           "0xaa",
		ParentHash:     "0xbb",
		StateRoot:      "0xcc",
		ExtrinsicsRoot: "0xdd",
		Logs:           []string{"0x0642414245"},
	}
	extrinsics := []*scale.Extrinsic{
		{
			Method: map[string]any{"pallet": "Timestamp", "method": "set"},
			Args:   map[string]any{"now": "1693000000000"},
		},
		{
			Method: map[string]any{"pallet": "Balances", "method": "transferAllowDeath"},
			Args:   map[string]any{"value": "1000"},
			Signature: &scale.ExtrinsicSignature{
				Signer: map[string]any{"id": "5Grw..."},
				Nonce:  "7",
				Tip:    "0",
			},
		},
	}
	records := []scale.EventRecord{
		{
			Phase:  scale.Phase{Kind: scale.PhaseApplyExtrinsic, Index: 1},
			Pallet: "balances",
			Event:  "Transfer",
			Fields: []scale.EventField{{Value: "5Grw..."}, {Value: "5FHn..."}, {Value: "1000"}},
		},
		{
			Phase:  scale.Phase{Kind: scale.PhaseApplyExtrinsic, Index: 1},
			Pallet: "system",
			Event:  "ExtrinsicSuccess",
			Fields: []scale.EventField{{Value: map[string]any{
				"weight":  map[string]any{"refTime": "100", "proofSize": "3"},
				"class":   "normal",
				"paysFee": "Yes",
			}}},
		},
		{
			Phase:  scale.Phase{Kind: scale.PhaseFinalization},
			Pallet: "session",
			Event:  "NewSession",
		},
	}
	events := CategorizeEvents(zap.NewNop(), records, len(extrinsics))

	b := BlockFromParts(header, extrinsics, events)

	assert.Equal(t, "1234", b.Number)
	assert.Equal(t, "0xaa", b.Hash)
	assert.Equal(t, "0xbb", b.ParentHash)
	assert.Equal(t, "0xcc", b.StateRoot)
	assert.Equal(t, "0xdd", b.ExtrinsicsRoot)
	assert.Equal(t, []string{"0x0642414245"}, b.Logs)

	assert.Empty(t, b.OnInitialize.Events)
	require.Len(t, b.OnFinalize.Events, 1)
	assert.Equal(t, EventMethod{Pallet: "session", Method: "NewSession"}, b.OnFinalize.Events[0].Method)

	require.Len(t, b.Extrinsics, 2)

	unsigned := b.Extrinsics[0]
	assert.Nil(t, unsigned.Signature)
	assert.False(t, unsigned.Success)
	assert.Empty(t, unsigned.Events)

	signed := b.Extrinsics[1]
	require.NotNil(t, signed.Signature)
	require.Len(t, signed.Events, 2)
	assert.Equal(t, []any{"5Grw...", "5FHn...", "1000"}, signed.Events[0].Data)
	assert.True(t, signed.Success)
	require.NotNil(t, signed.PaysFee)
	assert.True(t, *signed.PaysFee)
	require.NotNil(t, signed.Info)
	assert.Equal(t, Weight{RefTime: "100", ProofSize: "3"}, *signed.Info)
	require.NotNil(t, signed.Class)
	assert.Equal(t, "normal", *signed.Class)
}

func TestBlockFromPartsEmptyBlock(t *testing.T) {
	events := CategorizeEvents(nil, nil, 0)
	b := BlockFromParts(HeaderParts{Number: 0, Hash: "0x00"}, nil, events)

	assert.Equal(t, "0", b.Number)
	assert.NotNil(t, b.Logs)
	assert.Empty(t, b.Logs)
	assert.NotNil(t, b.Extrinsics)
	assert.Empty(t, b.Extrinsics)
	assert.NotNil(t, b.OnInitialize.Events)
	assert.NotNil(t, b.OnFinalize.Events)
}

func TestHexHelpers(t *testing.T) {
	assert.Equal(t, "0x010aff", BytesToHex([]byte{1, 10, 255}))
	assert.Equal(t, []byte{1, 10, 255}, HexToBytes("0x010aff"))
	assert.Equal(t, []byte{1, 10, 255}, HexToBytes("010aff"))
	assert.Nil(t, HexToBytes("0xzz"))
}
