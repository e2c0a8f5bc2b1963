package transform

import (
	"go.uber.org/zap"

	"github.com/paritytech/polkadot-rest-api-sub000/pkg/scale"
	"github.com/paritytech/polkadot-rest-api-sub000/pkg/ss58"
)

// AccountFieldTable maps "pallet.Event" to the positions of data fields that
// hold account identifiers. It is data, not algorithm: the table is injected
// so deployments can swap it per chain without touching the decoder.
type AccountFieldTable map[string][]int

// DefaultAccountFieldTable covers the common System/Balances/Staking events
// whose account fields can arrive as raw 32-byte buffers instead of typed
// AccountId32 composites.
func DefaultAccountFieldTable() AccountFieldTable {
	return AccountFieldTable{
		"system.NewAccount":       {0},
		"system.KilledAccount":    {0},
		"balances.Transfer":       {0, 1},
		"balances.Deposit":        {0},
		"balances.Withdraw":       {0},
		"balances.Endowed":        {0},
		"balances.Reserved":       {0},
		"balances.Unreserved":     {0},
		"staking.Rewarded":        {0},
		"staking.Slashed":         {0},
		"staking.Bonded":          {0},
		"staking.Unbonded":        {0},
		"identity.IdentitySet":    {0},
		"vesting.VestingUpdated":  {0},
		"vesting.VestingComplete": {0},
	}
}

// accountTypeNames are the type-name hints that mark a field as an account.
var accountTypeNames = map[string]bool{
	"AccountId32":  true,
	"AccountId":    true,
	"MultiAddress": true,
}

// RewriteAccountFields re-renders raw 32-byte hex values as checksummed
// addresses for the field positions the table lists, using the per-field
// type-name hints the event decoder attached. Records are updated in place.
func (t AccountFieldTable) RewriteAccountFields(logger *zap.Logger, records []scale.EventRecord, prefix uint16) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for ri := range records {
		rec := &records[ri]
		positions, ok := t[rec.Pallet+"."+rec.Event]
		if !ok {
			continue
		}
		for _, pos := range positions {
			if pos < 0 || pos >= len(rec.Fields) {
				continue
			}
			field := &rec.Fields[pos]
			if field.TypeName != "" && !accountTypeNames[field.TypeName] {
				continue
			}
			raw, ok := field.Value.(string)
			if !ok {
				continue
			}
			pub := HexToBytes(raw)
			if len(pub) != 32 {
				continue
			}
			addr, err := ss58.Encode(pub, prefix)
			if err != nil {
				logger.Warn("cannot re-render account field",
					zap.String("pallet", rec.Pallet),
					zap.String("event", rec.Event),
					zap.Int("position", pos),
					zap.Error(err),
				)
				continue
			}
			field.Value = addr
		}
	}
}
