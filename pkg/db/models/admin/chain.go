package admin

import (
	"time"
)

const ChainsTableName = "chains"

// Chain is one registered network the gateway can serve. SS58Prefix is the
// address format registered for the network; -1 means "ask the node".
type Chain struct {
	ChainID      uint64    `json:"chain_id" db:"chain_id"`
	ChainName    string    `json:"chain_name" db:"chain_name"`
	RPCEndpoints []string  `json:"rpc_endpoints" db:"rpc_endpoints"`
	WSEndpoint   string    `json:"ws_endpoint,omitempty" db:"ws_endpoint"`
	SS58Prefix   int16     `json:"ss58_prefix" db:"ss58_prefix"`
	Paused       uint8     `json:"paused" db:"paused"`
	Deleted      uint8     `json:"deleted" db:"deleted"`
	Notes        string    `json:"notes,omitempty" db:"notes"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
