package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"ptbscope/internal/application"
	"ptbscope/internal/config"
	"ptbscope/internal/infrastructure/kafka"
	"ptbscope/internal/infrastructure/logging"
	"ptbscope/internal/infrastructure/storage"
	"ptbscope/internal/infrastructure/suirpc"
	"ptbscope/internal/infrastructure/telemetry"
	"ptbscope/internal/interfaces/httpapi"
	"ptbscope/internal/streaming"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logCloser, err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		slog.Error("logger init error", "err", err)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	shutdownTracing, err := telemetry.InitTracer(context.Background(), telemetry.Config{
		ServiceName:    "ptbscope-inspector",
		ServiceVersion: version,
		Endpoint:       cfg.OtelEndpoint,
	})
	if err != nil {
		slog.Warn("tracing init error", "err", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			slog.Warn("tracing shutdown error", "err", err)
		}
	}()

	store, err := storage.Open(cfg)
	if err != nil {
		slog.Error("store error", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	var publisher application.EventPublisher
	var closers []io.Closer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			slog.Error("kafka producer error", "err", err)
			os.Exit(1)
		}
		publisher = producer
		closers = append(closers, producer)
	}

	var (
		signatures application.SignatureSource
		rpcPinger  httpapi.Pinger
	)
	if cfg.SuiRPCURL != "" {
		rpcClient, err := suirpc.NewClient(suirpc.Config{URL: cfg.SuiRPCURL, Timeout: cfg.RPCTimeout})
		if err != nil {
			slog.Error("rpc error", "err", err)
			os.Exit(1)
		}
		signatures = rpcClient
		rpcPinger = rpcClient
	}

	metrics := httpapi.NewMetrics()
	service, err := application.NewReplayService(store, publisher, signatures, metrics)
	if err != nil {
		slog.Error("replay service error", "err", err)
		os.Exit(1)
	}

	httpServer, err := httpapi.NewServer(cfg, service, store, rpcPinger, metrics, httpapi.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	})
	if err != nil {
		slog.Error("http server error", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	if cfg.KafkaIngestTopic != "" {
		reader := kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.KafkaGroupID,
			Topic:    cfg.KafkaIngestTopic,
			MinBytes: 1,
			MaxBytes: int(cfg.MaxBundleBytes),
		})
		closers = append(closers, reader)
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumeBundles(ctx, reader, service, metrics, cfg)
		}()
		slog.Info("bundle ingest started", "topic", cfg.KafkaIngestTopic, "group", cfg.KafkaGroupID)
	}

	slog.Info("http server listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
	if err := httpServer.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		slog.Error("http server error", "err", err)
		cancel()
	}

	<-ctx.Done()
	for _, c := range closers {
		_ = c.Close()
	}
	wg.Wait()
}

// fetcher is the part of kafka.Reader the consumer loop uses.
type fetcher interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

func consumeBundles(ctx context.Context, reader fetcher, ingester application.Ingester, metrics *httpapi.Metrics, cfg config.Config) {
	tracer := otel.Tracer("ptbscope/ingest")
	batch := application.NewBatch()

	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 500 * time.Millisecond
	}
	batchSize := int(cfg.BatchSize)
	if batchSize <= 0 {
		batchSize = 50
	}

	flush := func(reason string) {
		if batch.Len() == 0 {
			return
		}
		if err := batch.Flush(ctx, ingester, reader); err != nil {
			// offsets stay uncommitted; the batch is retried on the next flush
			slog.Error("batch flush error", "reason", reason, "err", err)
			metrics.IncKafkaFlushErr()
		}
	}

	for {
		fetchCtx, cancel := context.WithTimeout(ctx, flushInterval)
		message, err := reader.FetchMessage(fetchCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				flush("interval")
				continue
			}
			metrics.IncKafkaFetchErr()
			slog.Error("kafka fetch error", "err", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		metrics.ObserveKafkaMessage(message.Topic, message.Time)

		decoded, err := streaming.Decode(message.Value)
		if err != nil {
			slog.Warn("message decode error", "offset", message.Offset, "err", err)
			metrics.IncKafkaDecodeErr()
			_ = reader.CommitMessages(ctx, message)
			continue
		}

		messageCtx := telemetry.ExtractKafkaHeaders(ctx, message.Headers)
		if !trace.SpanContextFromContext(messageCtx).IsValid() && decoded.TraceID != "" {
			if ctxWithTrace, ok := telemetry.ContextWithTraceID(messageCtx, decoded.TraceID); ok {
				messageCtx = ctxWithTrace
			}
		}
		_, span := tracer.Start(messageCtx, "ingest.receive_bundle", trace.WithSpanKind(trace.SpanKindConsumer))
		span.SetAttributes(
			attribute.String("message.type", string(decoded.Type)),
			attribute.Int64("kafka.offset", message.Offset),
		)
		if decoded.Digest != "" {
			span.SetAttributes(attribute.String("tx.digest", decoded.Digest))
		}
		batch.Add(decoded, message)
		span.End()

		if batch.Len() >= batchSize {
			flush("size")
		}
	}
}
