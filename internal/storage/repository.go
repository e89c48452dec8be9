package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"finawise/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores raw transaction and user documents as JSON rows.
// The schema mirrors the document-store shape on purpose: adapters return
// loosely-typed records and all interpretation stays in the normalizer.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListTransactions implements store.TransactionReader.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.RawRecord, error) {
	return r.listDocs(ctx, `SELECT id, doc FROM transactions ORDER BY created_at`)
}

// ListUsers implements store.UserReader.
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.RawRecord, error) {
	return r.listDocs(ctx, `SELECT id, doc FROM users ORDER BY created_at`)
}

func (r *SQLiteRepository) listDocs(ctx context.Context, query string) ([]core.RawRecord, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []core.RawRecord
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		raw := core.RawRecord{}
		if err := json.Unmarshal([]byte(doc), &raw); err != nil {
			// A corrupt row must not sink the whole read; the normalizer
			// rejects what it cannot use anyway.
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

// AppendTransaction implements store.TransactionWriter. The record must
// already carry its id; the ingest service assigns one before storing.
func (r *SQLiteRepository) AppendTransaction(ctx context.Context, raw core.RawRecord) (string, error) {
	id, _ := raw["id"].(string)
	if id == "" {
		return "", fmt.Errorf("append transaction: record has no id")
	}

	doc, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("encode transaction document: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, doc, audit_status) VALUES (?, ?, 'pending')`,
		id, string(doc))
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite", "id", id)
	return id, nil
}

// AppendUser stores a raw user document.
func (r *SQLiteRepository) AppendUser(ctx context.Context, raw core.RawRecord) (string, error) {
	id, _ := raw["id"].(string)
	if id == "" {
		return "", fmt.Errorf("append user: record has no id")
	}

	doc, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("encode user document: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (id, doc) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET doc = excluded.doc`,
		id, string(doc))
	if err != nil {
		return "", fmt.Errorf("upsert user: %w", err)
	}
	return id, nil
}

// GetTransaction implements store.TransactionAuditor.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.RawRecord, error) {
	var doc string
	err := r.db.QueryRowContext(ctx,
		`SELECT doc FROM transactions WHERE id = ?`, id).Scan(&doc)
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", id, err)
	}
	raw := core.RawRecord{}
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		return nil, fmt.Errorf("decode transaction %s: %w", id, err)
	}
	raw["id"] = id
	return raw, nil
}

// MarkAudited implements store.TransactionAuditor.
func (r *SQLiteRepository) MarkAudited(ctx context.Context, id string, ok bool, detail string) error {
	status := "ok"
	if !ok {
		status = "rejected"
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET audit_status = ?, audit_detail = ? WHERE id = ?`,
		status, detail, id)
	if err != nil {
		return fmt.Errorf("mark transaction %s audited: %w", id, err)
	}

	slog.InfoContext(ctx, "Transaction audit recorded", "id", id, "status", status)
	return nil
}

// PendingAuditIDs returns ids of transactions that have not been audited yet.
// Backup path for the worker in case ingest events were lost.
func (r *SQLiteRepository) PendingAuditIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM transactions WHERE audit_status = 'pending' ORDER BY created_at LIMIT ?`,
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
