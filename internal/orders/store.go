package orders

import (
	"context"
	"errors"
)

var ErrOrderNotFound = errors.New("order not found")

// Store is the persistence gateway for orders and supplier orders. The
// orchestrators only ever need CRUD plus the two filtered scans below.
type Store interface {
	GetOrder(ctx context.Context, id string) (*Order, error)
	// ListPendingPaid returns ids of orders with status=pending and
	// payment_status=paid, oldest first.
	ListPendingPaid(ctx context.Context) ([]string, error)
	SetStatus(ctx context.Context, id string, st Status) error
	MarkProcessing(ctx context.Context, id string) error // status=processing, payment_status=paid
	BumpAttempts(ctx context.Context, id string) (int, error)
	FlagReview(ctx context.Context, id string) error

	InsertSupplierOrder(ctx context.Context, so *SupplierOrder) error
	SupplierOrdersForOrder(ctx context.Context, orderID string) ([]SupplierOrder, error)
	ListOpenSupplierOrders(ctx context.Context) ([]SupplierOrder, error)
	SetSupplierOrderStatus(ctx context.Context, id string, st SupplierOrderStatus) error
}
