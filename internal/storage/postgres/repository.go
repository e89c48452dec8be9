// Package postgres provides the Postgres-backed document repository, used
// when several service instances share one store. Documents keep the same
// raw JSON shape as the SQLite backend.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"finawise/internal/core"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type Repository struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
    id           TEXT PRIMARY KEY,
    doc          JSONB NOT NULL,
    audit_status TEXT NOT NULL DEFAULT 'pending',
    audit_detail TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS users (
    id         TEXT PRIMARY KEY,
    doc        JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_transactions_audit_status ON transactions (audit_status);
`

func New(ctx context.Context, connStr string) (*Repository, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// ListTransactions implements store.TransactionReader.
func (r *Repository) ListTransactions(ctx context.Context) ([]core.RawRecord, error) {
	return r.listDocs(ctx, `SELECT id, doc FROM transactions ORDER BY created_at`)
}

// ListUsers implements store.UserReader.
func (r *Repository) ListUsers(ctx context.Context) ([]core.RawRecord, error) {
	return r.listDocs(ctx, `SELECT id, doc FROM users ORDER BY created_at`)
}

func (r *Repository) listDocs(ctx context.Context, query string) ([]core.RawRecord, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []core.RawRecord
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		raw := core.RawRecord{}
		if err := json.Unmarshal(doc, &raw); err != nil {
			slog.WarnContext(ctx, "Skipping undecodable document", "id", id, "error", err)
			continue
		}
		raw["id"] = id
		docs = append(docs, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document rows: %w", err)
	}
	return docs, nil
}

// AppendTransaction implements store.TransactionWriter.
func (r *Repository) AppendTransaction(ctx context.Context, raw core.RawRecord) (string, error) {
	id, _ := raw["id"].(string)
	if id == "" {
		return "", fmt.Errorf("append transaction: record has no id")
	}
	doc, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("encode transaction document: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, doc) VALUES ($1, $2)`, id, doc)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

// AppendUser stores a raw user document, replacing any previous version.
func (r *Repository) AppendUser(ctx context.Context, raw core.RawRecord) (string, error) {
	id, _ := raw["id"].(string)
	if id == "" {
		return "", fmt.Errorf("append user: record has no id")
	}
	doc, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("encode user document: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (id, doc) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`, id, doc)
	if err != nil {
		return "", fmt.Errorf("upsert user: %w", err)
	}
	return id, nil
}

// GetTransaction implements store.TransactionAuditor.
func (r *Repository) GetTransaction(ctx context.Context, id string) (core.RawRecord, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT doc FROM transactions WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", id, err)
	}
	raw := core.RawRecord{}
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("decode transaction %s: %w", id, err)
	}
	raw["id"] = id
	return raw, nil
}

// PendingAuditIDs implements store.TransactionAuditor.
func (r *Repository) PendingAuditIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM transactions WHERE audit_status = 'pending' ORDER BY created_at LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query pending audits: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending audit id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkAudited implements store.TransactionAuditor.
func (r *Repository) MarkAudited(ctx context.Context, id string, ok bool, detail string) error {
	status := "ok"
	if !ok {
		status = "rejected"
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET audit_status = $1, audit_detail = $2 WHERE id = $3`,
		status, detail, id)
	if err != nil {
		return fmt.Errorf("mark transaction %s audited: %w", id, err)
	}
	return nil
}
