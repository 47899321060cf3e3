package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dcse/searchd/internal/config"
	"github.com/dcse/searchd/internal/domain"
	"github.com/dcse/searchd/internal/index"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// autoClaimBatchSize bounds one XAUTOCLAIM page during recovery.
	autoClaimBatchSize = 10

	// autoClaimStart is the scan cursor for a fresh recovery sweep. The
	// server returns it again once a sweep has wrapped the whole PEL.
	autoClaimStart = "0-0"
)

// Upserter is the write side the consumer feeds. Satisfied by *index.Writer.
type Upserter interface {
	Upsert(ctx context.Context, doc domain.IndexDocument) (index.WriteStatus, error)
}

// Health is the consumer's view of broker state for the health endpoint.
type Health struct {
	StreamConnected bool
	PendingCount    int64
}

// Consumer reads ingestion messages from a Redis Stream under a consumer
// group, indexes them through the writer, and acknowledges each message only
// after its write committed. Unacknowledged work left behind by crashed peers
// is reclaimed with XAUTOCLAIM at startup and on a periodic sweep. Delivery
// is at-least-once; the writer's hash check makes indexing effectively once.
type Consumer struct {
	client   *redis.Client
	writer   Upserter
	settings config.StreamSettings

	// name is unique per process so horizontally scaled instances can share
	// one group without colliding.
	name string

	processed atomic.Uint64
}

// New creates a consumer with a randomized per-process identity.
func New(client *redis.Client, writer Upserter, settings config.StreamSettings) *Consumer {
	return &Consumer{
		client:   client,
		writer:   writer,
		settings: settings,
		name:     "consumer-" + uuid.NewString()[:8],
	}
}

// Name returns the consumer identity within the group.
func (c *Consumer) Name() string {
	return c.name
}

// Run executes the consumer until ctx is cancelled: group registration, a
// startup recovery sweep, a periodic background sweep, and the steady read
// loop. Transient broker failures back off and retry; they never end the run.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		// The steady loop retries against the group anyway; a down broker
		// at startup must not crash the process.
		slog.Warn("Consumer group registration failed, continuing", "group", c.settings.Group, "error", err)
	}

	c.recoverPending(ctx)

	go c.sweepLoop(ctx)

	return c.consumeLoop(ctx)
}

// ensureGroup registers the consumer group, reading the stream backlog from
// the beginning on first creation. An already existing group is success.
func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.settings.Stream, c.settings.Group, "0").Err()
	if err == nil {
		slog.Info("Created consumer group", "stream", c.settings.Stream, "group", c.settings.Group)
		return nil
	}
	if strings.Contains(err.Error(), "BUSYGROUP") {
		slog.Info("Consumer group already exists", "stream", c.settings.Stream, "group", c.settings.Group)
		return nil
	}
	return fmt.Errorf("failed to create consumer group: %w", err)
}

// recoverPending claims and processes messages another consumer received but
// never acknowledged, once they have been idle past the configured threshold.
// Claiming is exclusive per message, so concurrent sweeps by peers are safe.
func (c *Consumer) recoverPending(ctx context.Context) {
	slog.Info("Recovering pending messages", "consumer", c.name)

	start := autoClaimStart
	for {
		msgs, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.settings.Stream,
			Group:    c.settings.Group,
			Consumer: c.name,
			MinIdle:  c.settings.ClaimMinIdle,
			Start:    start,
			Count:    autoClaimBatchSize,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("Pending recovery failed", "error", err)
			}
			return
		}
		if len(msgs) == 0 {
			return
		}

		for _, msg := range msgs {
			if err := c.processMessage(ctx, msg); err != nil {
				slog.Error("Failed processing recovered message, leaving unacknowledged",
					"id", msg.ID, "error", err)
				continue
			}
			c.ack(ctx, msg.ID)
		}

		if next == autoClaimStart {
			return
		}
		start = next
	}
}

// sweepLoop runs the recovery sweep periodically for the life of the process.
func (c *Consumer) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(c.settings.ClaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.recoverPending(ctx)
		}
	}
}

// consumeLoop is the steady state: blocking batched reads of new messages
// assigned to this consumer, ack only after a successful write.
func (c *Consumer) consumeLoop(ctx context.Context) error {
	slog.Info("Consumer joining group",
		"consumer", c.name, "group", c.settings.Group, "stream", c.settings.Stream)

	for {
		if ctx.Err() != nil {
			return nil
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.settings.Group,
			Consumer: c.name,
			Streams:  []string{c.settings.Stream, ">"},
			Count:    c.settings.ReadCount,
			Block:    c.settings.ReadBlock,
		}).Result()
		if errors.Is(err, redis.Nil) {
			// No messages within the block window.
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("Error in consumer loop", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.settings.ErrorBackoff):
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				if err := c.processMessage(ctx, msg); err != nil {
					slog.Error("Failed processing message, leaving unacknowledged for retry",
						"id", msg.ID, "error", err)
					continue
				}
				c.ack(ctx, msg.ID)
			}
		}
	}
}

// processMessage turns one stream message into an idempotent index update.
// A message without a usable payload is not an error: it is logged and
// treated as processed so it gets acknowledged and cannot wedge the stream.
func (c *Consumer) processMessage(ctx context.Context, msg redis.XMessage) error {
	doc, ok, err := DecodeMessage(msg)
	if err != nil {
		// Poison message: acknowledge and move on rather than letting it
		// block the stream through endless redelivery.
		slog.Warn("Malformed message payload, skipping", "id", msg.ID, "error", err)
		return nil
	}
	if !ok {
		slog.Warn("Message has no usable doc payload, skipping", "id", msg.ID)
		return nil
	}

	status, err := c.writer.Upsert(ctx, doc)
	if err != nil {
		return fmt.Errorf("upsert failed: %w", err)
	}

	count := c.processed.Add(1)
	slog.Info("Indexed document",
		"n", count, "id", doc.ID, "path", doc.Path, "status", status.String())
	return nil
}

// DecodeMessage extracts the IndexDocument from a stream message. ok is false
// when the message carries no "doc" field or an empty payload; an error means
// the payload was present but malformed.
func DecodeMessage(msg redis.XMessage) (domain.IndexDocument, bool, error) {
	var doc domain.IndexDocument

	raw, present := msg.Values["doc"]
	if !present {
		return doc, false, nil
	}
	payload, ok := raw.(string)
	if !ok || payload == "" {
		return doc, false, nil
	}

	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return doc, false, fmt.Errorf("malformed doc payload: %w", err)
	}
	if doc.ID == "" {
		return doc, false, fmt.Errorf("doc payload missing id")
	}
	return doc, true, nil
}

// ack acknowledges one message. Ack failures are logged but not retried; the
// message will be re-processed by a future sweep and deduplicated by hash.
func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.settings.Stream, c.settings.Group, id).Err(); err != nil && ctx.Err() == nil {
		slog.Error("Failed to acknowledge message", "id", id, "error", err)
	}
}

// CheckHealth reports broker reachability and the group's pending entry count.
func (c *Consumer) CheckHealth(ctx context.Context) Health {
	var h Health

	if err := c.client.Ping(ctx).Err(); err == nil {
		h.StreamConnected = true
	}

	pending, err := c.client.XPending(ctx, c.settings.Stream, c.settings.Group).Result()
	if err == nil && pending != nil {
		h.PendingCount = pending.Count
	}

	return h
}
