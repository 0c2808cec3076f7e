package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ptbscope/internal/application"
	"ptbscope/internal/artifact"
	"ptbscope/internal/domain"

	_ "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dsn string) (*Repository, error) {
	if dsn == "" {
		return nil, errors.New("db dsn is required")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if err := createSchema(db); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS replays (
			digest VARCHAR(64) NOT NULL,
			sender VARCHAR(66) NOT NULL,
			success TINYINT(1) NOT NULL,
			epoch BIGINT UNSIGNED NULL,
			summary MEDIUMTEXT NOT NULL,
			ingested_at BIGINT NOT NULL,
			PRIMARY KEY (digest),
			KEY replays_sender_idx (sender),
			KEY replays_ingested_idx (ingested_at)
		)`,
		`CREATE TABLE IF NOT EXISTS bundles (
			digest VARCHAR(64) NOT NULL,
			cache LONGTEXT NOT NULL,
			transaction_data LONGTEXT NOT NULL,
			effects LONGTEXT NOT NULL,
			gas MEDIUMTEXT NOT NULL,
			signatures LONGTEXT NOT NULL,
			PRIMARY KEY (digest)
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return ensureColumn(db, "replays", "epoch", "BIGINT UNSIGNED NULL")
}

func ensureColumn(db *sql.DB, table, column, definition string) error {
	var count int
	row := db.QueryRow(
		`SELECT COUNT(*) FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = ?`,
		table,
		column,
	)
	if err := row.Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)
	_, err := db.Exec(stmt)
	return err
}

func (r *Repository) SaveReplay(ctx context.Context, summary domain.Summary, bundle artifact.Bundle) error {
	if summary.Digest == "" {
		return errors.New("digest is required")
	}
	ctx, span := startDBSpan(ctx, "mysql.SaveReplay", attribute.String("tx.digest", summary.Digest))
	defer span.End()

	payload, err := json.Marshal(summary)
	if err != nil {
		return recordSpanError(span, err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return recordSpanError(span, err)
	}
	var epoch sql.NullInt64
	if summary.Epoch != nil {
		epoch = sql.NullInt64{Int64: int64(*summary.Epoch), Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO replays (digest, sender, success, epoch, summary, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			sender = VALUES(sender),
			success = VALUES(success),
			epoch = VALUES(epoch),
			summary = VALUES(summary),
			ingested_at = VALUES(ingested_at)`,
		summary.Digest, summary.Sender, summary.Success, epoch, string(payload), summary.IngestedAt.UnixNano()); err != nil {
		_ = tx.Rollback()
		return recordSpanError(span, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO bundles (digest, cache, transaction_data, effects, gas, signatures)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			cache = VALUES(cache),
			transaction_data = VALUES(transaction_data),
			effects = VALUES(effects),
			gas = VALUES(gas),
			signatures = VALUES(signatures)`,
		summary.Digest, string(bundle.Cache), string(bundle.Transaction), string(bundle.Effects), string(bundle.Gas), string(bundle.Signatures)); err != nil {
		_ = tx.Rollback()
		return recordSpanError(span, err)
	}
	if err := tx.Commit(); err != nil {
		return recordSpanError(span, err)
	}
	return nil
}

func (r *Repository) GetSummary(ctx context.Context, digest string) (domain.Summary, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
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
	ctx, span := startDBSpan(ctx, "mysql.GetBundle", attribute.String("tx.digest", digest))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var cache, transaction, effects, gas, signatures string
	err := r.db.QueryRowContext(ctx, `SELECT cache, transaction_data, effects, gas, signatures FROM bundles WHERE digest = ?`, digest).
		Scan(&cache, &transaction, &effects, &gas, &signatures)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return artifact.Bundle{}, false, nil
		}
		return artifact.Bundle{}, false, recordSpanError(span, err)
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
	ctx, span := startDBSpan(ctx, "mysql.QuerySummaries")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	clauses := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if filter.Sender != "" {
		clauses = append(clauses, "sender = ?")
		args = append(args, strings.ToLower(filter.Sender))
	}
	if filter.Success != nil {
		clauses = append(clauses, "success = ?")
		args = append(args, *filter.Success)
	}
	if filter.Epoch != nil {
		clauses = append(clauses, "epoch = ?")
		args = append(args, *filter.Epoch)
	}

	query := `SELECT summary FROM replays`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY ingested_at DESC, digest ASC LIMIT ?"
	args = append(args, normalizeLimit(filter.Limit))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	defer rows.Close()

	var summaries []domain.Summary
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, recordSpanError(span, err)
		}
		var summary domain.Summary
		if err := json.Unmarshal([]byte(payload), &summary); err != nil {
			return nil, recordSpanError(span, err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, recordSpanError(span, err)
	}
	span.SetAttributes(attribute.Int("replay.count", len(summaries)))
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

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 100
	}
	return limit
}

func recordSpanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func startDBSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.system", "mysql"))
	return otel.Tracer("ptbscope/mysql").Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}
