package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"ptbscope/internal/application"
	"ptbscope/internal/artifact"
	"ptbscope/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	versionKey      = "ptbscope:replays:version"
	summaryPrefix   = "ptbscope:summary:"
	queryKeyPrefix  = "ptbscope:replays:v"
	defaultCacheTTL = time.Hour
)

type Config struct {
	Addr string
	TTL  time.Duration
}

// CachedStore fronts a ReplayStore with redis. Summaries are cached by
// digest; query results are keyed on a version counter bumped on every save.
type CachedStore struct {
	application.ReplayStore
	client *redis.Client
	ttl    time.Duration
}

func NewCachedStore(base application.ReplayStore, cfg Config) (*CachedStore, error) {
	if base == nil {
		return nil, errors.New("base store is required")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return &CachedStore{ReplayStore: base}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return newCachedStore(base, client, cfg.TTL), nil
}

func newCachedStore(base application.ReplayStore, client *redis.Client, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedStore{ReplayStore: base, client: client, ttl: ttl}
}

func (s *CachedStore) SaveReplay(ctx context.Context, summary domain.Summary, bundle artifact.Bundle) error {
	if err := s.ReplayStore.SaveReplay(ctx, summary, bundle); err != nil {
		return err
	}
	if s.client == nil {
		return nil
	}
	_ = s.client.Del(ctx, summaryPrefix+summary.Digest).Err()
	_ = s.client.Incr(ctx, versionKey).Err()
	return nil
}

func (s *CachedStore) GetSummary(ctx context.Context, digest string) (domain.Summary, bool, error) {
	if s.client == nil {
		return s.ReplayStore.GetSummary(ctx, digest)
	}
	key := summaryPrefix + digest
	if cached, err := s.client.Get(ctx, key).Result(); err == nil {
		var summary domain.Summary
		if err := json.Unmarshal([]byte(cached), &summary); err == nil {
			return summary, true, nil
		}
	}
	summary, ok, err := s.ReplayStore.GetSummary(ctx, digest)
	if err != nil || !ok {
		return summary, ok, err
	}
	if payload, err := json.Marshal(summary); err == nil {
		_ = s.client.Set(ctx, key, payload, s.ttl).Err()
	}
	return summary, true, nil
}

func (s *CachedStore) QuerySummaries(ctx context.Context, filter application.ReplayQueryFilter) ([]domain.Summary, error) {
	if s.client == nil {
		return s.ReplayStore.QuerySummaries(ctx, filter)
	}
	version, ok := s.cacheVersion(ctx)
	if !ok {
		return s.ReplayStore.QuerySummaries(ctx, filter)
	}
	key := queryKey(version, filter)
	if cached, err := s.client.Get(ctx, key).Result(); err == nil {
		var summaries []domain.Summary
		if err := json.Unmarshal([]byte(cached), &summaries); err == nil {
			return summaries, nil
		}
	}

	summaries, err := s.ReplayStore.QuerySummaries(ctx, filter)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(summaries)
	if err != nil {
		return summaries, nil
	}
	_ = s.client.Set(ctx, key, payload, s.ttl).Err()
	return summaries, nil
}

// Ping checks redis and, when supported, the underlying store.
func (s *CachedStore) Ping(ctx context.Context) error {
	if p, ok := s.ReplayStore.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

func (s *CachedStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *CachedStore) cacheVersion(ctx context.Context) (string, bool) {
	version, err := s.client.Get(ctx, versionKey).Result()
	if err == nil {
		return version, true
	}
	if errors.Is(err, redis.Nil) {
		return "0", true
	}
	return "", false
}

func queryKey(version string, filter application.ReplayQueryFilter) string {
	var b strings.Builder
	b.Grow(96)
	b.WriteString(queryKeyPrefix)
	b.WriteString(version)
	b.WriteString(":sender=")
	if filter.Sender != "" {
		b.WriteString(strings.ToLower(filter.Sender))
	} else {
		b.WriteString("any")
	}
	b.WriteString(":success=")
	if filter.Success != nil {
		b.WriteString(strconv.FormatBool(*filter.Success))
	} else {
		b.WriteString("any")
	}
	b.WriteString(":epoch=")
	if filter.Epoch != nil {
		b.WriteString(strconv.FormatUint(*filter.Epoch, 10))
	} else {
		b.WriteString("any")
	}
	b.WriteString(":limit=")
	b.WriteString(strconv.Itoa(normalizeLimit(filter.Limit)))
	return b.String()
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 100
	}
	return limit
}
