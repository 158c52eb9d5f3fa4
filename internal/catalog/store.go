package catalog

import (
	"context"
	"errors"
	"time"
)

var ErrSupplierNotFound = errors.New("supplier not found")

type SupplierStore interface {
	// ListActive returns the read-only snapshot a sync run iterates.
	ListActive(ctx context.Context) ([]Supplier, error)
	Get(ctx context.Context, id string) (*Supplier, error)
	// RecordAuthFailure bumps the consecutive-failure counter and returns
	// the new count.
	RecordAuthFailure(ctx context.Context, id string) (int, error)
	ResetAuthFailures(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
}

type ProductStore interface {
	ListBySupplier(ctx context.Context, supplierID string) ([]Product, error)
	// Upsert resolves on (supplier_id, sku) so concurrent or retried runs
	// cannot create duplicate rows.
	Upsert(ctx context.Context, p Product) error
	// TouchSynced bumps last_synced_at for unchanged rows.
	TouchSynced(ctx context.Context, supplierID string, skus []string, ts time.Time) error
	Deactivate(ctx context.Context, supplierID string, skus []string) error
}

// RunStore persists sync runs: inserted at run start, finalized exactly once
// at run end, never mutated afterwards.
type RunStore interface {
	Begin(ctx context.Context, r *Run) error
	Finish(ctx context.Context, r *Run) error
	LastRuns(ctx context.Context, limit int) ([]Run, error)
}
