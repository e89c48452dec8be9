package worker

import (
	"context"
	"fmt"
	"log/slog"

	"finawise/internal/amqp"
	"finawise/internal/normalize"
	"finawise/internal/store"
)

// AuditWorker verifies stored raw transaction records against the canonical
// form and records the verdict. Records that fail normalization stay in the
// store (reports skip them anyway) but are marked rejected with the reason,
// so operators can see what the mobile clients are writing.
type AuditWorker struct {
	auditor   store.TransactionAuditor
	batchSize int
}

func NewAuditWorker(auditor store.TransactionAuditor, batchSize int) *AuditWorker {
	return &AuditWorker{
		auditor:   auditor,
		batchSize: batchSize,
	}
}

// HandleIngestMessage processes a single ingest message from AMQP.
func (w *AuditWorker) HandleIngestMessage(ctx context.Context, msg *amqp.TransactionIngestedMessage) error {
	slog.InfoContext(ctx, "Processing ingest message", "id", msg.ID)
	return w.auditOne(ctx, msg.ID)
}

// ProcessPendingAudits audits any records still marked pending.
// This is a backup mechanism in case AMQP messages are lost.
func (w *AuditWorker) ProcessPendingAudits(ctx context.Context) error {
	ids, err := w.auditor.PendingAuditIDs(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending audits: %w", err)
	}

	if len(ids) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending audits", "count", len(ids))

	for _, id := range ids {
		if err := w.auditOne(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to audit record", "id", id, "error", err)
			continue
		}
	}

	return nil
}

// StartupAuditCheck drains the pending backlog at worker startup, useful to
// recover from missed AMQP messages or worker downtime.
func (w *AuditWorker) StartupAuditCheck(ctx context.Context) error {
	ids, err := w.auditor.PendingAuditIDs(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending audits for startup check: %w", err)
	}

	if len(ids) == 0 {
		slog.InfoContext(ctx, "No pending audits found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending audits on startup, processing...", "count", len(ids))

	successCount := 0
	errorCount := 0

	for _, id := range ids {
		if err := w.auditOne(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to audit record on startup", "id", id, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup audit check complete",
		"success", successCount,
		"errors", errorCount)

	return nil
}

func (w *AuditWorker) auditOne(ctx context.Context, id string) error {
	raw, err := w.auditor.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	tx, rej := normalize.Transaction(raw)
	if rej != nil {
		slog.WarnContext(ctx, "Record failed audit",
			"id", id,
			"reason", string(rej.Reason),
			"detail", rej.Detail)
		return w.auditor.MarkAudited(ctx, id, false, fmt.Sprintf("%s: %s", rej.Reason, rej.Detail))
	}

	detail := ""
	if tx.Excluded {
		detail = "simulation"
	}
	if err := w.auditor.MarkAudited(ctx, id, true, detail); err != nil {
		return fmt.Errorf("mark record audited: %w", err)
	}

	slog.InfoContext(ctx, "Record passed audit",
		"id", id,
		"type", string(tx.Type),
		"amount_pesos", tx.Amount.Pesos)

	return nil
}
