package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"ptbscope/internal/artifact"
	"ptbscope/internal/config"
	"ptbscope/internal/domain"
	"ptbscope/internal/interfaces/httpapi"
	"ptbscope/internal/streaming"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queueFetcher struct {
	mu        sync.Mutex
	queue     []kafkago.Message
	committed []kafkago.Message
}

func (f *queueFetcher) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	f.mu.Lock()
	if len(f.queue) > 0 {
		msg := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (f *queueFetcher) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *queueFetcher) commits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

type countingIngester struct {
	mu    sync.Mutex
	count int
}

func (c *countingIngester) Ingest(context.Context, artifact.Bundle) (*domain.Transaction, domain.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return nil, domain.Summary{}, nil
}

func (c *countingIngester) ingested() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func bundleMessage(t *testing.T, offset int64) kafkago.Message {
	t.Helper()
	payload, err := streaming.Encode(streaming.Message{
		Type:   streaming.MessageTypeBundle,
		Digest: "d",
		Bundle: []byte(`{"cache":{},"transaction":{},"effects":{},"gas":{},"signatures":{}}`),
	})
	require.NoError(t, err)
	return kafkago.Message{Topic: "bundles", Offset: offset, Value: payload}
}

func TestConsumeBundlesFlushesAndCommits(t *testing.T) {
	fetcher := &queueFetcher{queue: []kafkago.Message{
		bundleMessage(t, 1),
		bundleMessage(t, 2),
		{Topic: "bundles", Offset: 3, Value: []byte("not json")},
		bundleMessage(t, 4),
	}}
	ingester := &countingIngester{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		consumeBundles(ctx, fetcher, ingester, httpapi.NewMetrics(), config.Config{
			BatchSize:     2,
			FlushInterval: 20 * time.Millisecond,
		})
	}()

	require.Eventually(t, func() bool {
		return fetcher.commits() == 4
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 3, ingester.ingested())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
