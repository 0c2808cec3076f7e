package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"ptbscope/internal/application"
	"ptbscope/internal/artifact"
	"ptbscope/internal/domain"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if dbPath == "" {
		return nil, errors.New("db path is required")
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// a single writer avoids SQLITE_BUSY on concurrent ingests
	db.SetMaxOpenConns(1)
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS replays (
			digest TEXT PRIMARY KEY,
			sender TEXT NOT NULL,
			success INTEGER NOT NULL,
			epoch INTEGER,
			summary TEXT NOT NULL,
			ingested_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_replays_sender ON replays(sender)`,
		`CREATE INDEX IF NOT EXISTS idx_replays_ingested_at ON replays(ingested_at)`,
		`CREATE TABLE IF NOT EXISTS bundles (
			digest TEXT PRIMARY KEY,
			cache TEXT NOT NULL,
			transaction_data TEXT NOT NULL,
			effects TEXT NOT NULL,
			gas TEXT NOT NULL,
			signatures TEXT NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) SaveReplay(ctx context.Context, summary domain.Summary, bundle artifact.Bundle) error {
	if summary.Digest == "" {
		return errors.New("digest is required")
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	success := 0
	if summary.Success {
		success = 1
	}
	var epoch sql.NullInt64
	if summary.Epoch != nil {
		epoch = sql.NullInt64{Int64: int64(*summary.Epoch), Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO replays (digest, sender, success, epoch, summary, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(digest) DO UPDATE SET
			sender = excluded.sender,
			success = excluded.success,
			epoch = excluded.epoch,
			summary = excluded.summary,
			ingested_at = excluded.ingested_at`,
		summary.Digest, summary.Sender, success, epoch, string(payload), summary.IngestedAt.UnixNano()); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO bundles (digest, cache, transaction_data, effects, gas, signatures)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(digest) DO UPDATE SET
			cache = excluded.cache,
			transaction_data = excluded.transaction_data,
			effects = excluded.effects,
			gas = excluded.gas,
			signatures = excluded.signatures`,
		summary.Digest, string(bundle.Cache), string(bundle.Transaction), string(bundle.Effects), string(bundle.Gas), string(bundle.Signatures)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *Repository) GetSummary(ctx context.Context, digest string) (domain.Summary, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var payload string
	if err := r.db.QueryRowContext(ctx, `SELECT summary FROM replays WHERE digest = ?`, digest).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Summary{}, false, nil
		}
		return domain.Summary{}, false, err
	}
	var summary domain.Summary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return domain.Summary{}, false, err
	}
	return summary, true, nil
}

func (r *Repository) GetBundle(ctx context.Context, digest string) (artifact.Bundle, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var cache, transaction, effects, gas, signatures string
	err := r.db.QueryRowContext(ctx, `SELECT cache, transaction_data, effects, gas, signatures FROM bundles WHERE digest = ?`, digest).
		Scan(&cache, &transaction, &effects, &gas, &signatures)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return artifact.Bundle{}, false, nil
		}
		return artifact.Bundle{}, false, err
	}
	return artifact.Bundle{
		Cache:       json.RawMessage(cache),
		Transaction: json.RawMessage(transaction),
		Effects:     json.RawMessage(effects),
		Gas:         json.RawMessage(gas),
		Signatures:  json.RawMessage(signatures),
	}, true, nil
}

func (r *Repository) QuerySummaries(ctx context.Context, filter application.ReplayQueryFilter) ([]domain.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	clauses := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if filter.Sender != "" {
		clauses = append(clauses, "sender = ?")
		args = append(args, strings.ToLower(filter.Sender))
	}
	if filter.Success != nil {
		success := 0
		if *filter.Success {
			success = 1
		}
		clauses = append(clauses, "success = ?")
		args = append(args, success)
	}
	if filter.Epoch != nil {
		clauses = append(clauses, "epoch = ?")
		args = append(args, int64(*filter.Epoch))
	}

	query := `SELECT summary FROM replays`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY ingested_at DESC, digest ASC LIMIT ?"

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.Summary
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var summary domain.Summary
		if err := json.Unmarshal([]byte(payload), &summary); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}
