package transform

import (
	"math/big"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/paritytech/polkadot-rest-api-sub000/pkg/scale"
)

const (
	systemPallet          = "system"
	extrinsicSuccessEvent = "ExtrinsicSuccess"
	extrinsicFailedEvent  = "ExtrinsicFailed"
)

// Weight is the decoded two-dimensional dispatch weight.
type Weight struct {
	RefTime   string `json:"refTime"`
	ProofSize string `json:"proofSize,omitempty"`
}

// ExtrinsicOutcome summarizes how one extrinsic fared, derived from the
// System success/failure events. Success only becomes true when a matching
// ExtrinsicSuccess event is observed; the absence of a Failed event proves
// nothing.
type ExtrinsicOutcome struct {
	Success      bool    `json:"success"`
	PaysFee      *bool   `json:"paysFee,omitempty"`
	ActualWeight *Weight `json:"actualWeight,omitempty"`
	Class        *string `json:"class,omitempty"`
}

// BlockEvents buckets a block's decoded events by phase and carries one
// outcome slot per extrinsic position.
type BlockEvents struct {
	OnInitialize []scale.EventRecord
	PerExtrinsic [][]scale.EventRecord
	OnFinalize   []scale.EventRecord
	Outcomes     []ExtrinsicOutcome
}

// CategorizeEvents routes each record into its phase bucket in a single
// linear pass and populates the per-extrinsic outcomes from System
// ExtrinsicSuccess/ExtrinsicFailed events. n is the block's extrinsic count.
func CategorizeEvents(logger *zap.Logger, records []scale.EventRecord, n int) *BlockEvents {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := &BlockEvents{
		OnInitialize: make([]scale.EventRecord, 0),
		PerExtrinsic: make([][]scale.EventRecord, n),
		OnFinalize:   make([]scale.EventRecord, 0),
		Outcomes:     make([]ExtrinsicOutcome, n),
	}
	for i := range out.PerExtrinsic {
		out.PerExtrinsic[i] = make([]scale.EventRecord, 0)
	}

	for _, rec := range records {
		switch rec.Phase.Kind {
		case scale.PhaseInitialization:
			out.OnInitialize = append(out.OnInitialize, rec)
		case scale.PhaseFinalization:
			out.OnFinalize = append(out.OnFinalize, rec)
		case scale.PhaseApplyExtrinsic:
			idx := int(rec.Phase.Index)
			if idx >= n {
				logger.Warn("event points past extrinsic count, dropping",
					zap.Int("index", idx),
					zap.Int("extrinsics", n),
					zap.String("pallet", rec.Pallet),
					zap.String("event", rec.Event),
				)
				continue
			}
			out.PerExtrinsic[idx] = append(out.PerExtrinsic[idx], rec)
			extractOutcome(logger, rec, &out.Outcomes[idx])
		}
	}
	return out
}

// extractOutcome reads DispatchInfo off a System success/failure event.
// Pallet matching is case-insensitive, event names are exact.
func extractOutcome(logger *zap.Logger, rec scale.EventRecord, outcome *ExtrinsicOutcome) {
	if !strings.EqualFold(rec.Pallet, systemPallet) {
		return
	}

	var infoPos int
	switch rec.Event {
	case extrinsicSuccessEvent:
		outcome.Success = true
		infoPos = 0
	case extrinsicFailedEvent:
		// data[0] is the DispatchError; the DispatchInfo follows it.
		infoPos = 1
	default:
		return
	}

	if infoPos >= len(rec.Fields) {
		logger.Warn("system outcome event carries no dispatch info",
			zap.String("event", rec.Event),
			zap.Int("fields", len(rec.Fields)),
		)
		return
	}
	info, ok := rec.Fields[infoPos].Value.(map[string]any)
	if !ok {
		logger.Warn("dispatch info is not an object", zap.String("event", rec.Event))
		return
	}

	if v, ok := lookupEither(info, "paysFee", "pays_fee"); ok {
		if pays, ok := paysFeeFrom(v); ok {
			outcome.PaysFee = &pays
		} else {
			logger.Warn("unrecognized paysFee representation", zap.Any("value", v))
		}
	}
	if v, ok := lookupEither(info, "weight", "actual_weight"); ok {
		if w := weightFrom(v); w != nil {
			outcome.ActualWeight = w
		} else {
			logger.Warn("unrecognized weight representation", zap.Any("value", v))
		}
	}
	if v, ok := info["class"]; ok {
		if c, ok := classFrom(v); ok {
			outcome.Class = &c
		}
	}
}

// lookupEither checks both casings a key can arrive in, since call arguments
// and event arguments decode in different naming modes.
func lookupEither(m map[string]any, camel, snake string) (any, bool) {
	if v, ok := m[camel]; ok {
		return v, true
	}
	v, ok := m[snake]
	return v, ok
}

// paysFeeFrom accepts a native bool, a "Yes"/"No" string, or an object whose
// "name" field is "Yes"/"No".
func paysFeeFrom(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		return yesNo(t)
	case map[string]any:
		if name, ok := t["name"].(string); ok {
			return yesNo(name)
		}
	}
	return false, false
}

func yesNo(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "yes":
		return true, true
	case "no":
		return false, true
	}
	return false, false
}

// weightFrom accepts the two-field weight object (camel or snake keys), a
// bare number or numeric string as the legacy one-dimensional weight, or a
// 0x-hex string decoded as a big integer.
func weightFrom(v any) *Weight {
	switch t := v.(type) {
	case map[string]any:
		ref, ok := lookupEither(t, "refTime", "ref_time")
		if !ok {
			return nil
		}
		refStr, ok := numericString(ref)
		if !ok {
			return nil
		}
		w := &Weight{RefTime: refStr}
		if proof, ok := lookupEither(t, "proofSize", "proof_size"); ok {
			if proofStr, ok := numericString(proof); ok {
				w.ProofSize = proofStr
			}
		}
		return w
	case string:
		if strings.HasPrefix(t, "0x") {
			n, ok := new(big.Int).SetString(strings.TrimPrefix(t, "0x"), 16)
			if !ok {
				return nil
			}
			return &Weight{RefTime: n.String()}
		}
		if _, err := strconv.ParseUint(t, 10, 64); err == nil {
			return &Weight{RefTime: t}
		}
		if _, ok := new(big.Int).SetString(t, 10); ok {
			return &Weight{RefTime: t}
		}
		return nil
	case float64:
		return &Weight{RefTime: strconv.FormatUint(uint64(t), 10)}
	}
	return nil
}

// numericString normalizes a decoded numeric value (decimal string, hex
// string or native number) to a decimal string.
func numericString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		if strings.HasPrefix(t, "0x") {
			n, ok := new(big.Int).SetString(strings.TrimPrefix(t, "0x"), 16)
			if !ok {
				return "", false
			}
			return n.String(), true
		}
		if _, ok := new(big.Int).SetString(t, 10); ok {
			return t, true
		}
		return "", false
	case float64:
		return strconv.FormatUint(uint64(t), 10), true
	}
	return "", false
}

// classFrom accepts a bare string or an object with a "name" string field.
func classFrom(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case map[string]any:
		if name, ok := t["name"].(string); ok {
			return name, true
		}
	}
	return "", false
}
