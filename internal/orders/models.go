package orders

import "time"

type Order struct {
	ID            string
	Status        Status
	PaymentStatus PaymentStatus
	Attempts      int
	NeedsReview   bool
	Items         []OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderItem struct {
	ID         string
	OrderID    string
	ProductID  string
	SupplierID string
	SKU        string
	Qty        int
	PriceCents int
}

// SupplierOrder links an order to one supplier's remote order. Rows are never
// deleted; status transitions are the audit trail.
type SupplierOrder struct {
	ID            string
	OrderID       string
	SupplierID    string
	RemoteOrderID string
	Status        SupplierOrderStatus
	Attempts      int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
