package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"finawise/internal/core"
)

// Store is an in-memory document store, optionally seeded from JSON files.
// It backs local development and tests where no database is available.
type Store struct {
	mu    sync.Mutex
	txs   []core.RawRecord
	users []core.RawRecord
}

func New(txs, users []core.RawRecord) *Store {
	return &Store{txs: txs, users: users}
}

// NewFromFiles seeds the store from base/seed_transactions.json and
// base/seed_users.json. Missing or malformed seed files yield an empty store
// rather than an error.
func NewFromFiles(base string) *Store {
	return New(
		readDocs(filepath.Join(base, "seed_transactions.json")),
		readDocs(filepath.Join(base, "seed_users.json")),
	)
}

// ListTransactions implements store.TransactionReader.
func (s *Store) ListTransactions(_ context.Context) ([]core.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.RawRecord(nil), s.txs...), nil
}

// ListUsers implements store.UserReader.
func (s *Store) ListUsers(_ context.Context) ([]core.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.RawRecord(nil), s.users...), nil
}

// AppendTransaction implements store.TransactionWriter.
func (s *Store) AppendTransaction(_ context.Context, raw core.RawRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, raw)
	if id, ok := raw["id"].(string); ok && id != "" {
		return id, nil
	}
	return fmt.Sprintf("mem:%d", len(s.txs)), nil
}

// AppendUser implements store.UserWriter, replacing any record with the
// same id.
func (s *Store) AppendUser(_ context.Context, raw core.RawRecord) (string, error) {
	id, _ := raw["id"].(string)
	if id == "" {
		return "", fmt.Errorf("append user: record has no id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, u := range s.users {
		if existing, _ := u["id"].(string); existing == id {
			s.users[i] = raw
			return id, nil
		}
	}
	s.users = append(s.users, raw)
	return id, nil
}

func readDocs(path string) []core.RawRecord {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var docs []core.RawRecord
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil
	}
	return docs
}
