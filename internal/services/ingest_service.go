package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"finawise/internal/amqp"
	"finawise/internal/core"
	"finawise/internal/normalize"
	"finawise/internal/store"
)

// IngestService accepts raw transaction and user documents from the CRUD
// surface, assigns ids, stores them, and announces stored transactions on
// AMQP so the audit worker picks them up.
type IngestService struct {
	transactions store.TransactionWriter
	users        store.UserWriter
	amqpClient   *amqp.Client
}

func NewIngestService(transactions store.TransactionWriter, users store.UserWriter, amqpClient *amqp.Client) *IngestService {
	return &IngestService{
		transactions: transactions,
		users:        users,
		amqpClient:   amqpClient,
	}
}

// CreateTransaction stores one raw transaction record. The record is run
// through the normalizer first so callers get the rejection reason
// immediately instead of discovering it in the audit log.
func (s *IngestService) CreateTransaction(ctx context.Context, raw core.RawRecord) (string, error) {
	if id, _ := raw["id"].(string); id == "" {
		raw["id"] = uuid.NewString()
	}

	if _, rej := normalize.Transaction(raw); rej != nil {
		return "", fmt.Errorf("transaction not canonicalizable: %s", rej)
	}

	ref, err := s.transactions.AppendTransaction(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}

	// Publish async audit message (non-blocking): the record is stored
	// either way, the worker catches up through the pending backlog.
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping ingest message", "id", ref)
		return ref, nil
	}
	if err := s.amqpClient.PublishTransactionIngested(ctx, ref); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ingest message", "id", ref, "error", err)
	}

	return ref, nil
}

// UpsertUser stores one raw user record, replacing any previous version.
func (s *IngestService) UpsertUser(ctx context.Context, raw core.RawRecord) (string, error) {
	if id, _ := raw["id"].(string); id == "" {
		raw["id"] = uuid.NewString()
	}
	ref, err := s.users.AppendUser(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("save user: %w", err)
	}
	return ref, nil
}

// Close closes the AMQP connection.
func (s *IngestService) Close() error {
	if s.amqpClient != nil {
		return s.amqpClient.Close()
	}
	return nil
}
