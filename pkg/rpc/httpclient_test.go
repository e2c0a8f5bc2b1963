package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNode answers JSON-RPC posts from a method->result table and counts
// calls per method.
type fakeNode struct {
	results map[string]any
	errors  map[string]*rpcError
	calls   map[string]*atomic.Int64
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		results: map[string]any{},
		errors:  map[string]*rpcError{},
		calls:   map[string]*atomic.Int64{},
	}
}

func (n *fakeNode) on(method string, result any) {
	n.results[method] = result
	n.calls[method] = &atomic.Int64{}
}

func (n *fakeNode) fail(method string, code int, msg string) {
	n.errors[method] = &rpcError{Code: code, Message: msg}
	n.calls[method] = &atomic.Int64{}
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if c, ok := n.calls[req.Method]; ok {
		c.Add(1)
	}

	w.Header().Set("Content-Type", "application/json")
	if rpcErr, ok := n.errors[req.Method]; ok {
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": req.ID, "error": rpcErr,
		})
		return
	}
	result, ok := n.results[req.Method]
	if !ok {
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": req.ID,
			"error": &rpcError{Code: -32601, Message: "method not found"},
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0", "id": req.ID, "result": result,
	})
}

func newTestClient(t *testing.T, node *fakeNode) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)
	return NewHTTPWithOpts(Opts{Endpoints: []string{srv.URL}, RPS: 1000, Burst: 1000})
}

func TestFinalizedHead(t *testing.T) {
	node := newFakeNode()
	node.on("chain_getFinalizedHead", "0xabcd")
	c := newTestClient(t, node)

	hash, err := c.FinalizedHead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0xabcd", hash)
}

func TestBlockHashMissingBlock(t *testing.T) {
	node := newFakeNode()
	node.on("chain_getBlockHash", nil)
	c := newTestClient(t, node)

	_, err := c.BlockHash(context.Background(), 999999)
	assert.ErrorContains(t, err, "no block at height")
}

func TestBlockParsesHeaderAndExtrinsics(t *testing.T) {
	node := newFakeNode()
	node.on("chain_getBlock", map[string]any{
		"block": map[string]any{
			"header": map[string]any{
				"parentHash":     "0x01",
				"number":         "0x4d2",
				"stateRoot":      "0x02",
				"extrinsicsRoot": "0x03",
				"digest":         map[string]any{"logs": []string{"0x0642414245"}},
			},
			"extrinsics": []string{"0x280402000b00"},
		},
	})
	c := newTestClient(t, node)

	block, err := c.Block(context.Background(), "0xaa")
	require.NoError(t, err)

	height, err := block.Block.Header.HeightOf()
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), height)
	assert.Equal(t, []string{"0x280402000b00"}, block.Block.Extrinsics)
	assert.Equal(t, []string{"0x0642414245"}, block.Block.Header.Digest.Logs)
}

func TestMetadataDecodedAndCached(t *testing.T) {
	node := newFakeNode()
	node.on("state_getMetadata", "0x6d65746114")
	c := newTestClient(t, node)

	blob, err := c.Metadata(context.Background(), "0xaa")
	require.NoError(t, err)
	assert.Equal(t, []byte("meta\x14"), blob)

	again, err := c.Metadata(context.Background(), "0xaa")
	require.NoError(t, err)
	assert.Equal(t, blob, again)
	assert.Equal(t, int64(1), node.calls["state_getMetadata"].Load())

	// A different hash is a different cache key.
	_, err = c.Metadata(context.Background(), "0xbb")
	require.NoError(t, err)
	assert.Equal(t, int64(2), node.calls["state_getMetadata"].Load())
}

func TestRuntimeVersionCachedPerHash(t *testing.T) {
	node := newFakeNode()
	node.on("state_getRuntimeVersion", map[string]any{
		"specName": "polkadot", "specVersion": 1002000, "transactionVersion": 26,
	})
	c := newTestClient(t, node)

	rv, err := c.RuntimeVersion(context.Background(), "0xaa")
	require.NoError(t, err)
	assert.Equal(t, "polkadot", rv.SpecName)
	assert.Equal(t, uint32(1002000), rv.SpecVersion)

	_, err = c.RuntimeVersion(context.Background(), "0xaa")
	require.NoError(t, err)
	assert.Equal(t, int64(1), node.calls["state_getRuntimeVersion"].Load())
}

func TestStorageNullValue(t *testing.T) {
	node := newFakeNode()
	node.on("state_getStorage", nil)
	c := newTestClient(t, node)

	value, err := c.Storage(context.Background(), "0x00", "0xaa")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestPropertiesMissingPrefix(t *testing.T) {
	node := newFakeNode()
	node.on("system_properties", map[string]any{"tokenSymbol": "DOT"})
	c := newTestClient(t, node)

	props, err := c.Properties(context.Background())
	require.NoError(t, err)
	assert.Nil(t, props.SS58Format)
}

func TestRPCErrorNotRetried(t *testing.T) {
	node := newFakeNode()
	node.fail("chain_getBlock", -32000, "unknown block")
	c := newTestClient(t, node)

	_, err := c.Block(context.Background(), "0xdead")
	require.Error(t, err)
	assert.ErrorContains(t, err, "unknown block")
	// The node answered, so exactly one attempt was made.
	assert.Equal(t, int64(1), node.calls["chain_getBlock"].Load())
}

func TestCallFailsOverAcrossEndpoints(t *testing.T) {
	node := newFakeNode()
	node.on("system_chain", "Polkadot")
	good := httptest.NewServer(node)
	defer good.Close()

	var badHits atomic.Int64
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badHits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()

	c := NewHTTPWithOpts(Opts{Endpoints: []string{bad.URL, good.URL}, RPS: 1000, Burst: 1000})

	name, err := c.ChainName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Polkadot", name)
	assert.Equal(t, int64(1), badHits.Load())
}

func TestNoEndpointsConfigured(t *testing.T) {
	c := NewHTTPWithOpts(Opts{})
	err := c.call(context.Background(), "system_chain", nil, nil)
	assert.Error(t, err)
}

func TestEndpointDedup(t *testing.T) {
	c := NewHTTPWithOpts(Opts{Endpoints: []string{"http://a", "http://a", "http://b"}})
	assert.Equal(t, []string{"http://a", "http://b"}, c.endpoints)
}

func TestParseHexUint(t *testing.T) {
	for in, want := range map[string]uint64{
		"0x0":   0,
		"0x4d2": 1234,
		"0x10":  16,
		"ff":    255,
	} {
		got, err := parseHexUint(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseHexUint("0xzz")
	assert.Error(t, err)
}
