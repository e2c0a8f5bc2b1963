package gateway

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/paritytech/polkadot-rest-api-sub000/pkg/rpc"
	"github.com/paritytech/polkadot-rest-api-sub000/pkg/scale"
	"github.com/paritytech/polkadot-rest-api-sub000/pkg/transform"
)

// Service turns node RPC responses into decoded block fragments. It owns a
// per-spec-version cache of parsed type registries; everything else is
// created fresh per request, so concurrent callers never share cursors or
// decoders.
type Service struct {
	rpc    *rpc.HTTPClient
	log    *zap.Logger
	prefix uint16
	table  transform.AccountFieldTable

	mu       sync.RWMutex
	runtimes map[uint32]*runtimeTypes
}

// runtimeTypes is one runtime version's registry plus the resolved ids the
// gateway decodes against.
type runtimeTypes struct {
	registry *scale.Registry
	eventsID scale.TypeID
	ext      scale.ExtrinsicTypes
}

// New creates a gateway service. table may be nil to disable account-field
// rewriting.
func New(client *rpc.HTTPClient, logger *zap.Logger, ss58Prefix uint16, table transform.AccountFieldTable) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		rpc:      client,
		log:      logger,
		prefix:   ss58Prefix,
		table:    table,
		runtimes: make(map[uint32]*runtimeTypes),
	}
}

// BlockByHeight fetches and decodes the block at the given height.
func (s *Service) BlockByHeight(ctx context.Context, height uint64) (*transform.Block, error) {
	hash, err := s.rpc.BlockHash(ctx, height)
	if err != nil {
		return nil, fmt.Errorf("block hash at %d: %w", height, err)
	}
	return s.BlockByHash(ctx, hash)
}

// HeadBlock fetches and decodes the latest finalized block.
func (s *Service) HeadBlock(ctx context.Context) (*transform.Block, error) {
	hash, err := s.rpc.FinalizedHead(ctx)
	if err != nil {
		return nil, fmt.Errorf("finalized head: %w", err)
	}
	return s.BlockByHash(ctx, hash)
}

// BlockByHash fetches and decodes the block with the given hash.
func (s *Service) BlockByHash(ctx context.Context, hash string) (*transform.Block, error) {
	rt, err := s.runtimeAt(ctx, hash)
	if err != nil {
		return nil, err
	}
	signed, err := s.rpc.Block(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("fetch block %s: %w", hash, err)
	}
	header, err := headerParts(&signed.Block.Header, hash)
	if err != nil {
		return nil, err
	}

	dec := scale.NewDecoder(rt.registry, s.prefix, s.log)

	extrinsics := make([]*scale.Extrinsic, 0, len(signed.Block.Extrinsics))
	for i, raw := range signed.Block.Extrinsics {
		bytes := transform.HexToBytes(raw)
		if bytes == nil {
			return nil, fmt.Errorf("extrinsic %d is not valid hex", i)
		}
		xt, err := dec.DecodeExtrinsic(scale.NewCursor(bytes), rt.ext)
		if err != nil {
			return nil, fmt.Errorf("decode extrinsic %d: %w", i, err)
		}
		extrinsics = append(extrinsics, xt)
	}

	records, err := s.decodeEvents(ctx, dec, rt, hash)
	if err != nil {
		return nil, err
	}
	buckets := transform.CategorizeEvents(s.log, records, len(extrinsics))

	return transform.BlockFromParts(header, extrinsics, buckets), nil
}

// EventsByHeight decodes only the events of the block at the given height.
func (s *Service) EventsByHeight(ctx context.Context, height uint64) (transform.HeaderParts, *transform.BlockEvents, error) {
	var empty transform.HeaderParts
	hash, err := s.rpc.BlockHash(ctx, height)
	if err != nil {
		return empty, nil, fmt.Errorf("block hash at %d: %w", height, err)
	}
	rt, err := s.runtimeAt(ctx, hash)
	if err != nil {
		return empty, nil, err
	}
	signed, err := s.rpc.Block(ctx, hash)
	if err != nil {
		return empty, nil, fmt.Errorf("fetch block %s: %w", hash, err)
	}
	header, err := headerParts(&signed.Block.Header, hash)
	if err != nil {
		return empty, nil, err
	}

	dec := scale.NewDecoder(rt.registry, s.prefix, s.log)
	records, err := s.decodeEvents(ctx, dec, rt, hash)
	if err != nil {
		return empty, nil, err
	}
	return header, transform.CategorizeEvents(s.log, records, len(signed.Block.Extrinsics)), nil
}

// ExtrinsicByIndex decodes one extrinsic of a block, with its events and
// outcome attached.
func (s *Service) ExtrinsicByIndex(ctx context.Context, height uint64, index int) (*transform.Extrinsic, error) {
	block, err := s.BlockByHeight(ctx, height)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(block.Extrinsics) {
		return nil, fmt.Errorf("block %d has %d extrinsics: %w", height, len(block.Extrinsics), ErrNotFound)
	}
	return &block.Extrinsics[index], nil
}

// RuntimeVersionAtHead returns the runtime version executing at the
// finalized head.
func (s *Service) RuntimeVersionAtHead(ctx context.Context) (*rpc.RuntimeVersion, error) {
	hash, err := s.rpc.FinalizedHead(ctx)
	if err != nil {
		return nil, err
	}
	return s.rpc.RuntimeVersion(ctx, hash)
}

// decodeEvents fetches and decodes the System.Events storage value. A block
// with no events storage yields an empty list.
func (s *Service) decodeEvents(ctx context.Context, dec *scale.Decoder, rt *runtimeTypes, hash string) ([]scale.EventRecord, error) {
	raw, err := s.rpc.SystemEvents(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("fetch events at %s: %w", hash, err)
	}
	if len(raw) == 0 {
		return []scale.EventRecord{}, nil
	}
	records, err := dec.DecodeEvents(scale.NewCursor(raw), rt.eventsID)
	if err != nil {
		return nil, fmt.Errorf("decode events at %s: %w", hash, err)
	}
	if s.table != nil {
		s.table.RewriteAccountFields(s.log, records, s.prefix)
	}
	return records, nil
}

// runtimeAt returns the cached registry for the runtime executing at hash,
// fetching and parsing metadata on first sight of a spec version.
func (s *Service) runtimeAt(ctx context.Context, hash string) (*runtimeTypes, error) {
	rv, err := s.rpc.RuntimeVersion(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("runtime version at %s: %w", hash, err)
	}

	s.mu.RLock()
	rt, ok := s.runtimes[rv.SpecVersion]
	s.mu.RUnlock()
	if ok {
		return rt, nil
	}

	blob, err := s.rpc.Metadata(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata at %s: %w", hash, err)
	}
	registry, err := scale.ParseMetadata(blob)
	if err != nil {
		return nil, fmt.Errorf("parse metadata v%d: %w", rv.SpecVersion, err)
	}
	eventsID, ok := registry.FindSequenceOf("EventRecord")
	if !ok {
		return nil, fmt.Errorf("runtime %d: no Vec<EventRecord> type in registry", rv.SpecVersion)
	}
	ext, err := scale.ResolveExtrinsicTypes(registry)
	if err != nil {
		return nil, fmt.Errorf("runtime %d: %w", rv.SpecVersion, err)
	}

	rt = &runtimeTypes{registry: registry, eventsID: eventsID, ext: ext}
	s.mu.Lock()
	s.runtimes[rv.SpecVersion] = rt
	s.mu.Unlock()

	s.log.Info("loaded runtime metadata",
		zap.String("spec", rv.SpecName),
		zap.Uint32("version", rv.SpecVersion),
		zap.Int("types", registry.Len()),
	)
	return rt, nil
}

func headerParts(h *rpc.Header, hash string) (transform.HeaderParts, error) {
	height, err := h.HeightOf()
	if err != nil {
		return transform.HeaderParts{}, fmt.Errorf("header number %q: %w", h.Number, err)
	}
	return transform.HeaderParts{
		Number:         height,
		Hash:           hash,
		ParentHash:     h.ParentHash,
		StateRoot:      h.StateRoot,
		ExtrinsicsRoot: h.ExtrinsicsRoot,
		Logs:           h.Digest.Logs,
	}, nil
}
