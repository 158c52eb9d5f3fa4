package catalog

import "time"

// Supplier is read-only during a sync run; SyncAll works off the snapshot
// taken at run start.
type Supplier struct {
	ID           string
	Name         string
	Type         string // adapter variant discriminator
	BaseURL      string
	APIKey       string
	Active       bool
	AuthFailures int // consecutive; reset on the first successful sync
}

type Product struct {
	ID           string
	SupplierID   string
	SKU          string // external SKU, unique per supplier
	Name         string
	PriceCents   int
	Stock        int
	Active       bool
	LastSyncedAt time.Time
}
