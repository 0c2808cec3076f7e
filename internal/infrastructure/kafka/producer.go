package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"ptbscope/internal/artifact"
	"ptbscope/internal/domain"
	"ptbscope/internal/infrastructure/telemetry"
	"ptbscope/internal/streaming"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTopic = "ptbscope-replays"

// messageWriter is the part of kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
	topic  string
}

type ProducerConfig struct {
	Brokers []string
	Topic   string
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 500 * time.Millisecond,
	}
	return newProducer(writer, cfg.Topic), nil
}

func newProducer(writer messageWriter, topic string) *Producer {
	if strings.TrimSpace(topic) == "" {
		topic = defaultTopic
	}
	return &Producer{writer: writer, topic: topic}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// PublishReplay announces a stored replay. Messages are keyed by sender so
// one sender's replays stay ordered within a partition.
func (p *Producer) PublishReplay(ctx context.Context, summary domain.Summary) error {
	ctx, span := otel.Tracer("ptbscope/kafka").Start(ctx, "replay.publish", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.String("tx.digest", summary.Digest),
		attribute.String("tx.sender", summary.Sender),
		attribute.Bool("tx.success", summary.Success),
	)

	payload, err := streaming.Encode(streaming.Message{
		Type:         streaming.MessageTypeReplay,
		Digest:       summary.Digest,
		TraceID:      telemetry.TraceIDFromContext(ctx),
		Sender:       summary.Sender,
		Success:      summary.Success,
		Epoch:        summary.Epoch,
		Checkpoint:   summary.Checkpoint,
		CommandCount: len(summary.CommandKinds),
		ObjectCount:  summary.ObjectCount,
		NetGasCost:   summary.NetGasCost,
	})
	if err != nil {
		return recordSpanError(span, err)
	}
	return p.write(ctx, span, []byte(summary.Sender), payload)
}

// PublishBundle queues a bundle for ingestion by a consumer.
func (p *Producer) PublishBundle(ctx context.Context, digest string, bundle artifact.Bundle) error {
	ctx, span := otel.Tracer("ptbscope/kafka").Start(ctx, "bundle.publish", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(attribute.String("tx.digest", digest))

	raw, err := json.Marshal(bundle.Compact())
	if err != nil {
		return recordSpanError(span, err)
	}
	span.SetAttributes(attribute.Int("bundle.bytes", len(raw)))
	payload, err := streaming.Encode(streaming.Message{
		Type:    streaming.MessageTypeBundle,
		Digest:  digest,
		TraceID: telemetry.TraceIDFromContext(ctx),
		Bundle:  raw,
	})
	if err != nil {
		return recordSpanError(span, err)
	}
	return p.write(ctx, span, []byte(digest), payload)
}

func (p *Producer) write(ctx context.Context, span trace.Span, key, payload []byte) error {
	headers := make([]kafka.Header, 0, 2)
	telemetry.InjectKafkaHeaders(ctx, &headers)
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   p.topic,
		Key:     key,
		Value:   payload,
		Headers: headers,
	})
	if err != nil {
		return recordSpanError(span, err)
	}
	return nil
}

func recordSpanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
