package admin

import (
	"time"
)

const RedecodeRequestsTableName = "redecode_requests"

const (
	RedecodeStatusPending = "pending"
	RedecodeStatusDone    = "done"
	RedecodeStatusFailed  = "failed"
)

// RedecodeRequest asks for a height range to be run through the decode path
// again, typically after a decoder fix or a runtime upgrade mishap. Serving
// one means erasing the range's progress records so the backfiller picks the
// heights up as gaps.
type RedecodeRequest struct {
	ChainID     uint64     `json:"chain_id" db:"chain_id"`
	FromHeight  uint64     `json:"from_height" db:"from_height"`
	ToHeight    uint64     `json:"to_height" db:"to_height"`
	Status      string     `json:"status" db:"status"`
	Error       string     `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
