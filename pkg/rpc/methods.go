package rpc

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoBlock means the node has no block at the requested height.
var ErrNoBlock = errors.New("no block at height")

// systemEventsKey is the well-known storage key of System.Events:
// twox128("System") ++ twox128("Events").
const systemEventsKey = "0x26aa394eea5630e07c48ae0c9558cef780d41e5e16056765bc8461851072c9d7"

// Header is a block header as returned by the node. Number arrives as a
// 0x-prefixed hex string.
type Header struct {
	ParentHash     string `json:"parentHash"`
	Number         string `json:"number"`
	StateRoot      string `json:"stateRoot"`
	ExtrinsicsRoot string `json:"extrinsicsRoot"`
	Digest         struct {
		Logs []string `json:"logs"`
	} `json:"digest"`
}

// HeightOf parses the header's hex block number.
func (h *Header) HeightOf() (uint64, error) {
	return parseHexUint(h.Number)
}

// SignedBlock is the chain_getBlock response: a header plus the block's
// extrinsics as hex strings.
type SignedBlock struct {
	Block struct {
		Header     Header   `json:"header"`
		Extrinsics []string `json:"extrinsics"`
	} `json:"block"`
}

// RuntimeVersion identifies the runtime executing at a block.
type RuntimeVersion struct {
	SpecName           string `json:"specName"`
	ImplName           string `json:"implName"`
	SpecVersion        uint32 `json:"specVersion"`
	TransactionVersion uint32 `json:"transactionVersion"`
}

// ChainProperties is the system_properties response; SS58Format is the
// network address prefix.
type ChainProperties struct {
	SS58Format    *uint16 `json:"ss58Format"`
	TokenSymbol   any     `json:"tokenSymbol"`
	TokenDecimals any     `json:"tokenDecimals"`
}

// FinalizedHead returns the hash of the latest finalized block.
func (c *HTTPClient) FinalizedHead(ctx context.Context) (string, error) {
	var hash string
	if err := c.call(ctx, "chain_getFinalizedHead", nil, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

// BlockHash returns the hash of the block at the given height.
func (c *HTTPClient) BlockHash(ctx context.Context, height uint64) (string, error) {
	var hash string
	if err := c.call(ctx, "chain_getBlockHash", []any{height}, &hash); err != nil {
		return "", err
	}
	if hash == "" {
		return "", fmt.Errorf("%w %d", ErrNoBlock, height)
	}
	return hash, nil
}

// Block fetches the block with the given hash.
func (c *HTTPClient) Block(ctx context.Context, hash string) (*SignedBlock, error) {
	var block SignedBlock
	if err := c.call(ctx, "chain_getBlock", []any{hash}, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// Header fetches only the header of the block with the given hash.
func (c *HTTPClient) Header(ctx context.Context, hash string) (*Header, error) {
	var header Header
	if err := c.call(ctx, "chain_getHeader", []any{hash}, &header); err != nil {
		return nil, err
	}
	return &header, nil
}

// RuntimeVersion returns the runtime version at the given block hash,
// cached per hash since it is immutable.
func (c *HTTPClient) RuntimeVersion(ctx context.Context, hash string) (*RuntimeVersion, error) {
	key := "state_getRuntimeVersion:" + hash
	if cached, ok := getCache[*RuntimeVersion](c, key); ok {
		return cached, nil
	}
	var rv RuntimeVersion
	if err := c.call(ctx, "state_getRuntimeVersion", []any{hash}, &rv); err != nil {
		return nil, err
	}
	setCache(c, key, &rv)
	return &rv, nil
}

// Metadata returns the raw SCALE-encoded runtime metadata at the given block
// hash, cached per hash. Metadata blobs run to megabytes, so the shared cache
// cap bounds how many stick around.
func (c *HTTPClient) Metadata(ctx context.Context, hash string) ([]byte, error) {
	key := "state_getMetadata:" + hash
	if cached, ok := getCache[[]byte](c, key); ok {
		return cached, nil
	}
	var raw string
	if err := c.call(ctx, "state_getMetadata", []any{hash}, &raw); err != nil {
		return nil, err
	}
	blob, err := decodeHexValue(raw)
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	setCache(c, key, blob)
	return blob, nil
}

// Storage returns the raw value under a storage key at the given block hash,
// or nil when the key is empty.
func (c *HTTPClient) Storage(ctx context.Context, storageKey, hash string) ([]byte, error) {
	var raw *string
	if err := c.call(ctx, "state_getStorage", []any{storageKey, hash}, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	value, err := decodeHexValue(*raw)
	if err != nil {
		return nil, fmt.Errorf("storage %s: %w", storageKey, err)
	}
	return value, nil
}

// SystemEvents returns the raw System.Events storage value at the given
// block hash.
func (c *HTTPClient) SystemEvents(ctx context.Context, hash string) ([]byte, error) {
	return c.Storage(ctx, systemEventsKey, hash)
}

// Properties returns the chain's system properties.
func (c *HTTPClient) Properties(ctx context.Context) (*ChainProperties, error) {
	var props ChainProperties
	if err := c.call(ctx, "system_properties", nil, &props); err != nil {
		return nil, err
	}
	return &props, nil
}

// ChainName returns the human-readable chain name.
func (c *HTTPClient) ChainName(ctx context.Context) (string, error) {
	var name string
	if err := c.call(ctx, "system_chain", nil, &name); err != nil {
		return "", err
	}
	return name, nil
}

func parseHexUint(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
}

func decodeHexValue(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
