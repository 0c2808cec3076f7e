package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ptbscope/internal/application"
	"ptbscope/internal/artifact"
	"ptbscope/internal/config"
	"ptbscope/internal/domain"
	"ptbscope/internal/movetype"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Replays is the part of application.ReplayService the API serves.
type Replays interface {
	Ingest(ctx context.Context, b artifact.Bundle) (*domain.Transaction, domain.Summary, error)
	Load(ctx context.Context, digest string) (*domain.Transaction, error)
	Summary(ctx context.Context, digest string) (domain.Summary, error)
	Recent(ctx context.Context, filter application.ReplayQueryFilter) ([]domain.Summary, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type Server struct {
	cfg       config.Config
	replays   Replays
	store     Pinger
	rpc       Pinger
	metrics   *Metrics
	cache     *lru.Cache[string, *domain.Transaction]
	buildInfo BuildInfo
}

// NewServer wires the API. store is pinged by /readyz; rpc may be nil when
// no signature source is configured.
func NewServer(cfg config.Config, replays Replays, store, rpc Pinger, metrics *Metrics, buildInfo BuildInfo) (*Server, error) {
	if replays == nil || store == nil {
		return nil, errors.New("http server dependencies must not be nil")
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	size := cfg.AggregateCacheSize
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, *domain.Transaction](size)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:       cfg,
		replays:   replays,
		store:     store,
		rpc:       rpc,
		metrics:   metrics,
		cache:     cache,
		buildInfo: buildInfo,
	}, nil
}

func (s *Server) MetricsObserver() *Metrics {
	return s.metrics
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.metrics.instrument(pattern, h))
	}
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.Handle("GET /metrics", s.metrics.Handler())
	route("POST /replays", s.handleIngest)
	route("GET /replays", s.handleRecent)
	route("GET /replays/{digest}", s.handleReplay)
	route("GET /replays/{digest}/objects", s.handleObjects)
	route("GET /replays/{digest}/objects/{id}", s.handleObject)
	route("GET /replays/{digest}/commands", s.handleCommands)
	route("GET /replays/{digest}/gas", s.handleGas)
	return mux
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	if s.rpc != nil {
		if err := s.rpc.Ping(ctx); err != nil {
			respondError(w, http.StatusServiceUnavailable, "rpc not ready")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.buildInfo)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.MaxBundleBytes
	if limit <= 0 {
		limit = 32 << 20
	}
	body := http.MaxBytesReader(w, r.Body, limit)
	var bundle artifact.Bundle
	if err := json.NewDecoder(body).Decode(&bundle); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "bundle too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid bundle json")
		return
	}

	tx, summary, err := s.replays.Ingest(r.Context(), bundle)
	if err != nil {
		var agg *application.AggregationError
		if errors.As(err, &agg) {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error":    agg.Err.Error(),
				"artifact": agg.Artifact,
				"field":    agg.Field,
			})
			return
		}
		slog.Error("ingest failed", "err", err)
		respondError(w, http.StatusInternalServerError, "ingest failed")
		return
	}
	s.cache.Add(tx.Digest(), tx)
	respondJSON(w, http.StatusCreated, summary)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	filter, err := parseReplayFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	summaries, err := s.replays.Recent(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if summaries == nil {
		summaries = []domain.Summary{}
	}
	respondJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	tx, ok := s.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, newTransactionView(tx))
}

func (s *Server) handleObjects(w http.ResponseWriter, r *http.Request) {
	tx, ok := s.load(w, r)
	if !ok {
		return
	}
	objects := newObjectViews(tx)
	switch kind := r.URL.Query().Get("kind"); kind {
	case "":
	case string(domain.ObjectKindPackage), string(domain.ObjectKindMoveObject), string(domain.ObjectKindUnknown):
		filtered := objects[:0]
		for _, obj := range objects {
			if obj.Kind == kind {
				filtered = append(filtered, obj)
			}
		}
		objects = filtered
	default:
		respondError(w, http.StatusBadRequest, "invalid kind")
		return
	}
	respondJSON(w, http.StatusOK, objects)
}

func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	tx, ok := s.load(w, r)
	if !ok {
		return
	}
	obj, found := tx.Object(r.PathValue("id"))
	if !found {
		respondError(w, http.StatusNotFound, "object not found")
		return
	}
	respondJSON(w, http.StatusOK, newObjectView(obj, tx.Gas()))
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	tx, ok := s.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, newCommandViews(tx.Commands()))
}

func (s *Server) handleGas(w http.ResponseWriter, r *http.Request) {
	tx, ok := s.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, newGasView(tx.Gas()))
}

// load resolves the path digest to an aggregate, going to the store on a
// cache miss. It writes the error response itself.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (*domain.Transaction, bool) {
	digest := r.PathValue("digest")
	if tx, ok := s.cache.Get(digest); ok {
		s.metrics.observeCache(true)
		return tx, true
	}
	s.metrics.observeCache(false)

	tx, err := s.replays.Load(r.Context(), digest)
	if err != nil {
		if errors.Is(err, application.ErrReplayNotFound) {
			respondError(w, http.StatusNotFound, "replay not found")
			return nil, false
		}
		slog.Error("load replay failed", "digest", digest, "err", err)
		respondError(w, http.StatusInternalServerError, "load failed")
		return nil, false
	}
	s.cache.Add(digest, tx)
	return tx, true
}

func parseReplayFilter(r *http.Request) (application.ReplayQueryFilter, error) {
	q := r.URL.Query()
	var filter application.ReplayQueryFilter
	if raw := strings.TrimSpace(q.Get("sender")); raw != "" {
		filter.Sender = movetype.NormalizeAddress(raw)
	}
	if raw := q.Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return application.ReplayQueryFilter{}, errors.New("invalid limit")
		}
		filter.Limit = value
	}
	if raw := q.Get("success"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return application.ReplayQueryFilter{}, errors.New("invalid success")
		}
		filter.Success = &value
	}
	if raw := strings.TrimSpace(q.Get("epoch")); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return application.ReplayQueryFilter{}, errors.New("invalid epoch")
		}
		filter.Epoch = &value
	}
	return filter, nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
