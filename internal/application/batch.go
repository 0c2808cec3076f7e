package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ptbscope/internal/artifact"
	"ptbscope/internal/domain"
	"ptbscope/internal/streaming"

	"github.com/segmentio/kafka-go"
)

// Ingester is the part of ReplayService a batch flush needs.
type Ingester interface {
	Ingest(ctx context.Context, b artifact.Bundle) (*domain.Transaction, domain.Summary, error)
}

// Batch collects bundle messages from a topic and ingests them together,
// committing offsets only after every bundle has been handled.
type Batch struct {
	bundles   []artifact.Bundle
	messages  []kafka.Message
	undecoded int
	minOffset map[int]int64
	maxOffset map[int]int64
}

func NewBatch() *Batch {
	return &Batch{
		minOffset: make(map[int]int64),
		maxOffset: make(map[int]int64),
	}
}

// Add queues msg. Messages whose bundle does not parse are still committed
// on flush so they do not block the partition.
func (b *Batch) Add(msg streaming.Message, kafkaMsg kafka.Message) {
	if msg.Type == streaming.MessageTypeBundle {
		var bundle artifact.Bundle
		if err := json.Unmarshal(msg.Bundle, &bundle); err != nil {
			slog.Warn("bundle decode error", "offset", kafkaMsg.Offset, "err", err)
			b.undecoded++
		} else {
			b.bundles = append(b.bundles, bundle)
		}
	}

	b.messages = append(b.messages, kafkaMsg)

	partition := kafkaMsg.Partition
	offset := kafkaMsg.Offset
	if min, ok := b.minOffset[partition]; !ok || offset < min {
		b.minOffset[partition] = offset
	}
	if max, ok := b.maxOffset[partition]; !ok || offset > max {
		b.maxOffset[partition] = offset
	}
}

func (b *Batch) Len() int {
	return len(b.messages)
}

type Committer interface {
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Flush ingests every queued bundle. Rejected bundles are logged and
// skipped; any other failure aborts the flush before offsets are committed.
func (b *Batch) Flush(ctx context.Context, ingester Ingester, committer Committer) error {
	if b.Len() == 0 {
		return nil
	}

	start := time.Now()
	ingested, rejected := 0, 0
	for _, bundle := range b.bundles {
		_, _, err := ingester.Ingest(ctx, bundle)
		var agg *AggregationError
		switch {
		case err == nil:
			ingested++
		case errors.As(err, &agg):
			rejected++
		default:
			return fmt.Errorf("failed to ingest bundle: %w", err)
		}
	}

	if err := committer.CommitMessages(ctx, b.messages...); err != nil {
		return fmt.Errorf("failed to commit kafka messages: %w", err)
	}

	slog.Info("flushed batch",
		"count", b.Len(),
		"ingested", ingested,
		"rejected", rejected,
		"undecoded", b.undecoded,
		"partitions", len(b.minOffset),
		"duration", time.Since(start),
	)

	b.Reset()
	return nil
}

func (b *Batch) Reset() {
	b.bundles = b.bundles[:0]
	b.messages = b.messages[:0]
	b.undecoded = 0
	clear(b.minOffset)
	clear(b.maxOffset)
}
