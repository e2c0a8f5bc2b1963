package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the gateway.
type Config struct {

	// Node RPC
	NodeRPCURLs []string
	NodeWSURL   string
	RPCRPS      int
	RPCBurst    int

	// Address rendering
	ChainID    uint64
	SS58Prefix int // -1 means ask the node's system_properties

	// PostgreSQL
	PostgresURL string

	// Redis
	RedisURL      string
	HeadsTopic    string
	ConsumerGroup string

	// Worker
	WorkerConcurrency int

	// WebSocket head subscription
	WSEnabled        bool
	WSMaxRetries     int
	WSReconnectDelay time.Duration

	// Logging
	LogLevel string

	// HTTP API
	HTTPAddr   string
	AdminToken string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Defaults
		RPCRPS:            100,
		RPCBurst:          200,
		ChainID:           1,
		SS58Prefix:        -1,
		HeadsTopic:        "heads-to-decode",
		ConsumerGroup:     "gateway-workers",
		WorkerConcurrency: 1,
		WSEnabled:         true,
		WSMaxRetries:      25,
		WSReconnectDelay:  time.Second,
		LogLevel:          "info",
	}

	// Required
	rpcURLs := os.Getenv("NODE_RPC_URL")
	if rpcURLs == "" {
		return nil, fmt.Errorf("NODE_RPC_URL is required")
	}
	for _, u := range strings.Split(rpcURLs, ",") {
		u = strings.TrimSpace(u)
		if u != "" {
			cfg.NodeRPCURLs = append(cfg.NodeRPCURLs, u)
		}
	}
	if len(cfg.NodeRPCURLs) == 0 {
		return nil, fmt.Errorf("NODE_RPC_URL is required")
	}

	cfg.PostgresURL = os.Getenv("POSTGRES_URL")
	if cfg.PostgresURL == "" {
		return nil, fmt.Errorf("POSTGRES_URL is required")
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	// Optional overrides
	cfg.NodeWSURL = os.Getenv("NODE_WS_URL")

	if v := os.Getenv("CHAIN_ID"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.ChainID = n
		}
	}

	if v := os.Getenv("SS58_PREFIX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < -1 || n > 16383 {
			return nil, fmt.Errorf("SS58_PREFIX must be -1..16383, got %q", v)
		}
		cfg.SS58Prefix = n
	}

	if v := os.Getenv("RPC_RPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RPCRPS = n
		}
	}

	if v := os.Getenv("RPC_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RPCBurst = n
		}
	}

	if v := os.Getenv("HEADS_TOPIC"); v != "" {
		cfg.HeadsTopic = v
	}

	if v := os.Getenv("CONSUMER_GROUP"); v != "" {
		cfg.ConsumerGroup = v
	}

	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WorkerConcurrency = n
		}
	}

	if v := os.Getenv("WS_ENABLED"); v != "" {
		cfg.WSEnabled = v == "true" || v == "1"
	}
	if cfg.WSEnabled && cfg.NodeWSURL == "" {
		cfg.WSEnabled = false
	}

	if v := os.Getenv("WS_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WSMaxRetries = n
		}
	}

	if v := os.Getenv("WS_RECONNECT_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.WSReconnectDelay = d
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080" // Default port
	}

	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")
	if cfg.AdminToken == "" {
		cfg.AdminToken = "devtoken" // Default token for development
	}

	return cfg, nil
}
