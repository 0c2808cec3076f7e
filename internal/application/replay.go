package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ptbscope/internal/artifact"
	"ptbscope/internal/domain"
	"ptbscope/internal/movetype"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type ReplayStore interface {
	SaveReplay(ctx context.Context, summary domain.Summary, bundle artifact.Bundle) error
	GetSummary(ctx context.Context, digest string) (domain.Summary, bool, error)
	GetBundle(ctx context.Context, digest string) (artifact.Bundle, bool, error)
	QuerySummaries(ctx context.Context, filter ReplayQueryFilter) ([]domain.Summary, error)
}

type EventPublisher interface {
	PublishReplay(ctx context.Context, summary domain.Summary) error
}

// SignatureSource looks up a Move function's declared signature.
type SignatureSource interface {
	MoveFunctionSignature(ctx context.Context, pkg, module, function string) (*domain.Signature, error)
}

type ReplayObserver interface {
	OnReplayIngested(duration time.Duration, commands int)
	OnReplayRejected(artifact string)
	OnSignatureBackfill(filled, failed int)
}

var (
	ErrReplayNotFound = errors.New("replay not found")
	ErrStoreRequired  = errors.New("replay store is required")
)

// ReplayService ingests artifact bundles and serves stored replays. Only
// store is required.
type ReplayService struct {
	store      ReplayStore
	publisher  EventPublisher
	signatures SignatureSource
	observer   ReplayObserver
	now        func() time.Time
}

func NewReplayService(store ReplayStore, publisher EventPublisher, signatures SignatureSource, observer ReplayObserver) (*ReplayService, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	return &ReplayService{
		store:      store,
		publisher:  publisher,
		signatures: signatures,
		observer:   observer,
		now:        time.Now,
	}, nil
}

// Ingest aggregates b and, once a consistent transaction exists, stores it
// and announces it. Rejected bundles return *AggregationError and leave the
// store untouched.
func (s *ReplayService) Ingest(ctx context.Context, b artifact.Bundle) (*domain.Transaction, domain.Summary, error) {
	ctx, span := otel.Tracer("ptbscope/replay").Start(ctx, "replay.ingest")
	defer span.End()
	start := s.now()

	decoded, err := b.Decode()
	if err != nil {
		agg := aggregationError(err).(*AggregationError)
		s.rejected(agg)
		span.RecordError(agg)
		span.SetStatus(codes.Error, agg.Error())
		return nil, domain.Summary{}, agg
	}
	if s.signatures != nil {
		b = s.backfill(ctx, b, &decoded)
	}

	tx := Assemble(decoded)
	if tx.Digest() == "" {
		agg := &AggregationError{Artifact: artifact.ArtifactEffects, Field: "transaction_digest", Err: artifact.ErrMissing}
		s.rejected(agg)
		span.SetStatus(codes.Error, agg.Error())
		return nil, domain.Summary{}, agg
	}
	span.SetAttributes(
		attribute.String("tx.digest", tx.Digest()),
		attribute.Int("tx.commands", len(tx.Commands())),
	)

	summary := stamp(Summarize(tx), s.now)
	if err := s.store.SaveReplay(ctx, summary, b.Compact()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, domain.Summary{}, fmt.Errorf("store replay %s: %w", tx.Digest(), err)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishReplay(ctx, summary); err != nil {
			slog.Warn("publish replay event failed", "digest", tx.Digest(), "err", err)
		}
	}
	if s.observer != nil {
		s.observer.OnReplayIngested(s.now().Sub(start), len(tx.Commands()))
	}
	slog.Info("ingested replay",
		"digest", tx.Digest(),
		"objects", len(tx.Objects()),
		"commands", len(tx.Commands()),
		"success", summary.Success,
	)
	return tx, summary, nil
}

func (s *ReplayService) rejected(err *AggregationError) {
	slog.Warn("replay rejected", "artifact", err.Artifact, "field", err.Field, "err", err.Err)
	if s.observer != nil {
		s.observer.OnReplayRejected(err.Artifact)
	}
}

type functionKey struct {
	pkg, module, function string
}

// backfill fetches signatures for MoveCall positions that arrived without
// one. The returned bundle carries the completed signatures artifact so a
// stored replay rebuilds to the same transaction.
func (s *ReplayService) backfill(ctx context.Context, b artifact.Bundle, d *artifact.Decoded) artifact.Bundle {
	cmds := d.Transaction.Commands
	sigs := make([]*domain.Signature, len(cmds))
	copy(sigs, d.Signatures.Commands)

	fetched := make(map[functionKey]*domain.Signature)
	filled, failed := 0, 0
	for i, cmd := range cmds {
		if cmd.Kind != domain.CommandMoveCall || sigs[i] != nil {
			continue
		}
		key := functionKey{movetype.NormalizeAddress(cmd.Package), cmd.Module, cmd.Function}
		sig, ok := fetched[key]
		if !ok {
			var err error
			sig, err = s.signatures.MoveFunctionSignature(ctx, key.pkg, key.module, key.function)
			if err != nil {
				slog.Warn("signature backfill failed",
					"package", key.pkg, "module", key.module, "function", key.function, "err", err)
				sig = nil
			}
			fetched[key] = sig
		}
		if sig == nil {
			failed++
			continue
		}
		sigs[i] = sig
		filled++
	}
	if s.observer != nil && filled+failed > 0 {
		s.observer.OnSignatureBackfill(filled, failed)
	}
	if filled == 0 {
		return b
	}
	// keep positions beyond the command list as supplied
	if len(d.Signatures.Commands) > len(sigs) {
		sigs = append(sigs, d.Signatures.Commands[len(sigs):]...)
	}
	d.Signatures.Commands = sigs
	b.Signatures = artifact.EncodeSignatures(sigs)
	return b
}

// Load rebuilds a stored replay from its bundle.
func (s *ReplayService) Load(ctx context.Context, digest string) (*domain.Transaction, error) {
	b, ok, err := s.store.GetBundle(ctx, digest)
	if err != nil {
		return nil, fmt.Errorf("load bundle %s: %w", digest, err)
	}
	if !ok {
		return nil, ErrReplayNotFound
	}
	return Aggregate(b)
}

func (s *ReplayService) Summary(ctx context.Context, digest string) (domain.Summary, error) {
	summary, ok, err := s.store.GetSummary(ctx, digest)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("load summary %s: %w", digest, err)
	}
	if !ok {
		return domain.Summary{}, ErrReplayNotFound
	}
	return summary, nil
}

func (s *ReplayService) Recent(ctx context.Context, filter ReplayQueryFilter) ([]domain.Summary, error) {
	return s.store.QuerySummaries(ctx, filter)
}
