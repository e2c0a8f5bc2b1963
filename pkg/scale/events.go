package scale

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// PhaseKind says when, relative to a block's extrinsics, an event was emitted.
type PhaseKind int

const (
	PhaseInitialization PhaseKind = iota
	PhaseApplyExtrinsic
	PhaseFinalization
)

// Phase is the decoded execution phase of one event record.
type Phase struct {
	Kind  PhaseKind
	Index uint32 // extrinsic position, valid for PhaseApplyExtrinsic
}

// EventField is one data field of an event. Event fields carry no field
// names on the wire, so the resolved type's trailing path segment is kept as
// TypeName for downstream semantic reinterpretation (account re-detection).
type EventField struct {
	TypeName string
	Value    any
}

// EventRecord is one decoded event: its phase, the emitting pallet
// (lowercased), the event name (exact case) and the ordered data fields.
type EventRecord struct {
	Phase  Phase
	Pallet string
	Event  string
	Fields []EventField
}

// DecodeEvents decodes the fixed top-level shape Vec<EventRecord>, where each
// record is a 3-field composite (phase, event, topics). Decoding is
// best-effort per record: a record that fails to decode is logged and
// dropped while earlier records are kept. A failure decoding the top-level
// sequence itself is fatal.
func (d *Decoder) DecodeEvents(cur *Cursor, id TypeID) ([]EventRecord, error) {
	t, err := d.reg.Resolve(id)
	if err != nil {
		return nil, err
	}
	if t.Def.Kind != KindSequence {
		return nil, fmt.Errorf("events type %d is not a sequence", id)
	}
	record, err := d.reg.Resolve(t.Def.Elem)
	if err != nil {
		return nil, err
	}
	if record.Def.Kind != KindComposite || len(record.Def.Fields) != 3 {
		return nil, fmt.Errorf("event record type %d is not a 3-field composite", t.Def.Elem)
	}

	count, err := cur.CompactUint()
	if err != nil {
		return nil, fmt.Errorf("event count: %w", err)
	}

	out := make([]EventRecord, 0, count)
	for i := uint64(0); i < count; i++ {
		rec, err := d.decodeEventRecord(cur, record.Def.Fields)
		if err != nil {
			// One malformed event must not void the whole block's list.
			d.log.Warn("skipping undecodable event record",
				zap.Uint64("index", i),
				zap.Error(err),
			)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (d *Decoder) decodeEventRecord(cur *Cursor, fields []Field) (EventRecord, error) {
	var rec EventRecord

	phase, err := d.decodePhase(cur, fields[0].Type)
	if err != nil {
		return rec, fmt.Errorf("phase: %w", err)
	}
	rec.Phase = phase

	if err := d.decodePalletEvent(cur, fields[1].Type, &rec); err != nil {
		return rec, fmt.Errorf("event: %w", err)
	}

	// Topics are decoded to advance the cursor but not retained.
	if _, err := d.decode(cur, fields[2].Type, CamelCase, 0); err != nil {
		return rec, fmt.Errorf("topics: %w", err)
	}
	return rec, nil
}

// decodePhase decodes the Phase variant. Compatibility quirks are kept on
// purpose: an unrecognized variant becomes Finalization and an unreadable
// ApplyExtrinsic index becomes 0, both logged rather than rejected.
func (d *Decoder) decodePhase(cur *Cursor, id TypeID) (Phase, error) {
	t, err := d.reg.Resolve(id)
	if err != nil {
		return Phase{}, err
	}
	if t.Def.Kind != KindVariant {
		return Phase{}, fmt.Errorf("phase type %d is not a variant", id)
	}
	idx, err := cur.Byte()
	if err != nil {
		return Phase{}, err
	}
	v, ok := findVariant(t, idx)
	if !ok {
		return Phase{}, fmt.Errorf("phase index %d: %w", idx, ErrUnknownVariant)
	}

	switch v.Name {
	case "Initialization":
		return Phase{Kind: PhaseInitialization}, nil
	case "Finalization":
		return Phase{Kind: PhaseFinalization}, nil
	case "ApplyExtrinsic":
		index := uint32(0)
		if len(v.Fields) == 1 {
			raw, err := d.decode(cur, v.Fields[0].Type, CamelCase, 0)
			if err != nil {
				return Phase{}, err
			}
			if s, ok := raw.(string); ok {
				if n, err := strconv.ParseUint(s, 10, 32); err == nil {
					index = uint32(n)
				} else {
					d.log.Warn("unparsable ApplyExtrinsic index, defaulting to 0", zap.String("raw", s))
				}
			} else {
				d.log.Warn("non-numeric ApplyExtrinsic index, defaulting to 0")
			}
		}
		return Phase{Kind: PhaseApplyExtrinsic, Index: index}, nil
	default:
		// Keep the cursor aligned by consuming whatever the variant carries.
		for _, f := range v.Fields {
			if _, err := d.decode(cur, f.Type, CamelCase, 0); err != nil {
				return Phase{}, err
			}
		}
		d.log.Warn("unrecognized phase variant, defaulting to Finalization", zap.String("variant", v.Name))
		return Phase{Kind: PhaseFinalization}, nil
	}
}

// decodePalletEvent decodes the two-level runtime event variant: the outer
// variant names the pallet and its single field is the pallet's event enum,
// whose variant names the event and carries the data fields.
func (d *Decoder) decodePalletEvent(cur *Cursor, id TypeID, rec *EventRecord) error {
	outer, err := d.reg.Resolve(id)
	if err != nil {
		return err
	}
	if outer.Def.Kind != KindVariant {
		return fmt.Errorf("runtime event type %d is not a variant", id)
	}
	idx, err := cur.Byte()
	if err != nil {
		return err
	}
	pallet, ok := findVariant(outer, idx)
	if !ok {
		return fmt.Errorf("pallet index %d: %w", idx, ErrUnknownVariant)
	}
	if len(pallet.Fields) != 1 {
		return fmt.Errorf("pallet variant %q does not wrap a single event enum", pallet.Name)
	}
	rec.Pallet = lowerFirst(pallet.Name)

	inner, err := d.reg.Resolve(pallet.Fields[0].Type)
	if err != nil {
		return err
	}
	if inner.Def.Kind != KindVariant {
		return fmt.Errorf("event enum type %d is not a variant", pallet.Fields[0].Type)
	}
	eventIdx, err := cur.Byte()
	if err != nil {
		return err
	}
	event, ok := findVariant(inner, eventIdx)
	if !ok {
		return fmt.Errorf("event index %d: %w", eventIdx, ErrUnknownVariant)
	}
	rec.Event = event.Name

	rec.Fields = make([]EventField, 0, len(event.Fields))
	for i, f := range event.Fields {
		value, err := d.decode(cur, f.Type, CamelCase, 0)
		if err != nil {
			return fmt.Errorf("field %d: %w", i, err)
		}
		typeName := ""
		if ft, err := d.reg.Resolve(f.Type); err == nil {
			typeName = ft.LastPathSegment()
		}
		rec.Fields = append(rec.Fields, EventField{TypeName: typeName, Value: value})
	}
	return nil
}
