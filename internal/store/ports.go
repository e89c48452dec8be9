package store

import (
	"context"

	"finawise/internal/core"
)

// Ports for the document-store adapters. Readers return loosely-typed raw
// records; canonicalization happens in the normalizer, never in an adapter,
// so the aggregation engine only ever sees plain in-memory data.
type (
	TransactionReader interface {
		// ListTransactions returns every stored raw transaction record.
		ListTransactions(ctx context.Context) ([]core.RawRecord, error)
	}

	UserReader interface {
		// ListUsers returns every stored raw user record.
		ListUsers(ctx context.Context) ([]core.RawRecord, error)
	}

	TransactionWriter interface {
		// AppendTransaction stores a raw transaction record and returns its id.
		AppendTransaction(ctx context.Context, raw core.RawRecord) (string, error)
	}

	UserWriter interface {
		// AppendUser stores a raw user record, replacing a previous version.
		AppendUser(ctx context.Context, raw core.RawRecord) (string, error)
	}

	// TransactionAuditor is implemented by adapters that track the audit
	// state of ingested records (the memory adapter does not).
	TransactionAuditor interface {
		GetTransaction(ctx context.Context, id string) (core.RawRecord, error)
		MarkAudited(ctx context.Context, id string, ok bool, detail string) error
		// PendingAuditIDs lists records still awaiting audit, oldest first.
		PendingAuditIDs(ctx context.Context, limit int) ([]string, error)
	}
)
