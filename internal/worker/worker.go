package worker

import (
	"context"
	"encoding/binary"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"github.com/paritytech/polkadot-rest-api-sub000/internal/gateway"
	adminstore "github.com/paritytech/polkadot-rest-api-sub000/pkg/db/postgres/admin"
)

// Config configures the worker.
type Config struct {
	RedisClient   redis.UniversalClient
	Gateway       *gateway.Service
	AdminDB       *adminstore.DB
	ChainID       uint64
	Topic         string
	ConsumerGroup string
	Concurrency   int
}

// QueueStats holds queue statistics.
type QueueStats struct {
	StreamLength int64
	Pending      int64
	Consumers    int64
}

// Worker consumes announced heights from Redis Streams and decodes them,
// keeping the runtime registry cache warm before clients ask for the block.
type Worker struct {
	router        *message.Router
	gateway       *gateway.Service
	adminDB       *adminstore.DB
	chainID       uint64
	redisClient   redis.UniversalClient
	topic         string
	consumerGroup string
}

// New creates a new Worker.
func New(cfg Config) (*Worker, error) {
	logger := watermill.NewSlogLogger(nil)

	sub, err := redisstream.NewSubscriber(
		redisstream.SubscriberConfig{
			Client:        cfg.RedisClient,
			ConsumerGroup: cfg.ConsumerGroup,
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, err
	}

	w := &Worker{
		router:        router,
		gateway:       cfg.Gateway,
		adminDB:       cfg.AdminDB,
		chainID:       cfg.ChainID,
		redisClient:   cfg.RedisClient,
		topic:         cfg.Topic,
		consumerGroup: cfg.ConsumerGroup,
	}

	router.AddNoPublisherHandler(
		"decode-head",
		cfg.Topic,
		sub,
		w.handleHead,
	)

	return w, nil
}

// handleHead processes a single head message.
func (w *Worker) handleHead(msg *message.Message) error {
	start := time.Now()
	msgUUID := msg.UUID

	if len(msg.Payload) < 8 {
		slog.Warn("worker invalid payload",
			"msg_uuid", msgUUID,
			"len", len(msg.Payload),
		)
		return nil // ack invalid messages to avoid infinite retry
	}

	height := binary.BigEndian.Uint64(msg.Payload[0:8])

	slog.Info("worker decode start",
		"height", height,
		"msg_uuid", msgUUID,
	)

	ctx := context.Background()
	if _, err := w.gateway.BlockByHeight(ctx, height); err != nil {
		duration := time.Since(start)
		slog.Error("worker decode failed",
			"height", height,
			"msg_uuid", msgUUID,
			"duration_ms", duration.Milliseconds(),
			"err", err,
		)
		// Delay before retry to avoid hammering on errors
		time.Sleep(5 * time.Second)
		return err // will be redelivered
	}

	duration := time.Since(start)

	if w.adminDB != nil {
		if err := w.adminDB.RecordDecoded(ctx, w.chainID, height, float64(duration.Milliseconds())); err != nil {
			slog.Warn("worker progress record failed",
				"height", height,
				"err", err,
			)
		}
	}

	slog.Info("worker decode done",
		"height", height,
		"msg_uuid", msgUUID,
		"duration_ms", duration.Milliseconds(),
	)
	return nil
}

// Run starts the worker. It blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	return w.router.Run(ctx)
}

// Close closes the worker.
func (w *Worker) Close() error {
	return w.router.Close()
}

// QueueStats returns current queue statistics.
func (w *Worker) QueueStats(ctx context.Context) (QueueStats, error) {
	var stats QueueStats

	length, err := w.redisClient.XLen(ctx, w.topic).Result()
	if err != nil {
		return stats, err
	}
	stats.StreamLength = length

	groups, err := w.redisClient.XInfoGroups(ctx, w.topic).Result()
	if err != nil {
		// Stream might not exist yet
		return stats, nil
	}

	for _, g := range groups {
		if g.Name == w.consumerGroup {
			stats.Pending = g.Pending
			stats.Consumers = g.Consumers
			break
		}
	}

	return stats, nil
}

// LogQueueStats logs current queue statistics.
func (w *Worker) LogQueueStats(ctx context.Context) {
	stats, err := w.QueueStats(ctx)
	if err != nil {
		slog.Warn("worker queue stats error", "err", err)
		return
	}

	slog.Info("worker queue stats",
		"stream_length", stats.StreamLength,
		"pending", stats.Pending,
		"consumers", stats.Consumers,
	)
}
