package transform

import (
	"strconv"

	"github.com/paritytech/polkadot-rest-api-sub000/pkg/scale"
)

// HeaderParts is the raw header material the response builder works from.
// Hash fields arrive as 0x-prefixed hex from the node.
type HeaderParts struct {
	Number         uint64
	Hash           string
	ParentHash     string
	StateRoot      string
	ExtrinsicsRoot string
	Logs           []string
}

// EventMethod names the pallet and event of one decoded event.
type EventMethod struct {
	Pallet string `json:"pallet"`
	Method string `json:"method"`
}

// Event is one decoded event in response form: its method plus the ordered
// data values.
type Event struct {
	Method EventMethod `json:"method"`
	Data   []any       `json:"data"`
}

// Lifecycle groups the events emitted outside any extrinsic.
type Lifecycle struct {
	Events []Event `json:"events"`
}

// Extrinsic is one extrinsic in response form: the restructured call, the
// optional signature block, its events and its derived outcome.
type Extrinsic struct {
	Method    any     `json:"method"`
	Args      any     `json:"args"`
	Signature any     `json:"signature,omitempty"`
	Events    []Event `json:"events"`
	Success   bool    `json:"success"`
	PaysFee   *bool   `json:"paysFee,omitempty"`
	Info      *Weight `json:"actualWeight,omitempty"`
	Class     *string `json:"class,omitempty"`
}

// Block is the full block response fragment.
type Block struct {
	Number         string      `json:"number"`
	Hash           string      `json:"hash"`
	ParentHash     string      `json:"parentHash"`
	StateRoot      string      `json:"stateRoot"`
	ExtrinsicsRoot string      `json:"extrinsicsRoot"`
	Logs           []string    `json:"logs"`
	OnInitialize   Lifecycle   `json:"onInitialize"`
	Extrinsics     []Extrinsic `json:"extrinsics"`
	OnFinalize     Lifecycle   `json:"onFinalize"`
}

// BlockFromParts assembles the block response from the header, the decoded
// extrinsics and the categorized events. events.Outcomes must be sized to
// len(extrinsics); CategorizeEvents guarantees that.
func BlockFromParts(header HeaderParts, extrinsics []*scale.Extrinsic, events *BlockEvents) *Block {
	b := &Block{
		Number:         strconv.FormatUint(header.Number, 10),
		Hash:           header.Hash,
		ParentHash:     header.ParentHash,
		StateRoot:      header.StateRoot,
		ExtrinsicsRoot: header.ExtrinsicsRoot,
		Logs:           header.Logs,
		OnInitialize:   Lifecycle{Events: EventsFromRecords(events.OnInitialize)},
		OnFinalize:     Lifecycle{Events: EventsFromRecords(events.OnFinalize)},
		Extrinsics:     make([]Extrinsic, 0, len(extrinsics)),
	}
	if b.Logs == nil {
		b.Logs = make([]string, 0)
	}

	for i, xt := range extrinsics {
		ext := Extrinsic{
			Method: xt.Method,
			Args:   xt.Args,
			Events: make([]Event, 0),
		}
		if xt.Signature != nil {
			ext.Signature = xt.Signature
		}
		if i < len(events.PerExtrinsic) {
			ext.Events = EventsFromRecords(events.PerExtrinsic[i])
		}
		if i < len(events.Outcomes) {
			outcome := events.Outcomes[i]
			ext.Success = outcome.Success
			ext.PaysFee = outcome.PaysFee
			ext.Info = outcome.ActualWeight
			ext.Class = outcome.Class
		}
		b.Extrinsics = append(b.Extrinsics, ext)
	}
	return b
}

// EventsFromRecords converts decoded event records to response form.
func EventsFromRecords(records []scale.EventRecord) []Event {
	out := make([]Event, 0, len(records))
	for _, rec := range records {
		out = append(out, EventFromRecord(rec))
	}
	return out
}

// EventFromRecord converts one decoded event record to response form.
func EventFromRecord(rec scale.EventRecord) Event {
	data := make([]any, 0, len(rec.Fields))
	for _, f := range rec.Fields {
		data = append(data, f.Value)
	}
	return Event{
		Method: EventMethod{Pallet: rec.Pallet, Method: rec.Event},
		Data:   data,
	}
}
