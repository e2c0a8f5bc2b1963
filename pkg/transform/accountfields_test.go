package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paritytech/polkadot-rest-api-sub000/pkg/scale"
)

const (
	rawAlice   = "0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	aliceAddr  = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	testPrefix = uint16(42)
)

func transferRecord(fields ...scale.EventField) scale.EventRecord {
	return scale.EventRecord{
		Phase:  scale.Phase{Kind: scale.PhaseApplyExtrinsic},
		Pallet: "balances",
		Event:  "Transfer",
		Fields: fields,
	}
}

func TestRewriteAccountFields(t *testing.T) {
	records := []scale.EventRecord{
		transferRecord(
			scale.EventField{TypeName: "AccountId32", Value: rawAlice},
			scale.EventField{TypeName: "AccountId32", Value: rawAlice},
			scale.EventField{TypeName: "", Value: "1000"},
		),
	}
	DefaultAccountFieldTable().RewriteAccountFields(nil, records, testPrefix)

	assert.Equal(t, aliceAddr, records[0].Fields[0].Value)
	assert.Equal(t, aliceAddr, records[0].Fields[1].Value)
	assert.Equal(t, "1000", records[0].Fields[2].Value)
}

func TestRewriteSkipsNonAccountTypeName(t *testing.T) {
	// A 32-byte hash at an account position must not be rewritten when the
	// type hint says it is not an account.
	records := []scale.EventRecord{
		transferRecord(scale.EventField{TypeName: "H256", Value: rawAlice}),
	}
	DefaultAccountFieldTable().RewriteAccountFields(nil, records, testPrefix)
	assert.Equal(t, rawAlice, records[0].Fields[0].Value)
}

func TestRewriteEmptyTypeNameStillRewrites(t *testing.T) {
	records := []scale.EventRecord{
		transferRecord(scale.EventField{Value: rawAlice}),
	}
	DefaultAccountFieldTable().RewriteAccountFields(nil, records, testPrefix)
	assert.Equal(t, aliceAddr, records[0].Fields[0].Value)
}

func TestRewriteSkipsUnlistedEvents(t *testing.T) {
	records := []scale.EventRecord{
		{
			Pallet: "balances",
			Event:  "Slashed",
			Fields: []scale.EventField{{TypeName: "AccountId32", Value: rawAlice}},
		},
	}
	DefaultAccountFieldTable().RewriteAccountFields(nil, records, testPrefix)
	assert.Equal(t, rawAlice, records[0].Fields[0].Value)
}

func TestRewriteSkipsNonHexAndWrongLength(t *testing.T) {
	records := []scale.EventRecord{
		transferRecord(
			scale.EventField{Value: "0x0102"},
			scale.EventField{Value: map[string]any{"id": aliceAddr}},
		),
	}
	DefaultAccountFieldTable().RewriteAccountFields(nil, records, testPrefix)
	assert.Equal(t, "0x0102", records[0].Fields[0].Value)
	assert.Equal(t, map[string]any{"id": aliceAddr}, records[0].Fields[1].Value)
}

func TestRewriteIgnoresOutOfRangePositions(t *testing.T) {
	// Transfer lists positions 0 and 1; a record with one field must not
	// panic.
	records := []scale.EventRecord{
		transferRecord(scale.EventField{Value: rawAlice}),
	}
	require.NotPanics(t, func() {
		DefaultAccountFieldTable().RewriteAccountFields(nil, records, testPrefix)
	})
	assert.Equal(t, aliceAddr, records[0].Fields[0].Value)
}
