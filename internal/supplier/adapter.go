package supplier

import "context"

// RemoteProduct is one catalog entry as the supplier reports it.
type RemoteProduct struct {
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
	Stock      int    `json:"stock"`
}

type OrderLine struct {
	SKU        string `json:"sku"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}

// PushOrderRequest carries the caller-generated idempotency key so a retried
// push against a flaky supplier does not double-create the remote order.
type PushOrderRequest struct {
	OrderID        string      `json:"order_id"`
	IdempotencyKey string      `json:"-"`
	Lines          []OrderLine `json:"lines"`
}

type RemoteOrderHandle struct {
	RemoteID string
}

// RemoteStatus is the supplier-agnostic order lifecycle vocabulary. Each
// adapter maps its supplier's own strings into this closed set; supplier
// wording never leaks past the adapter.
type RemoteStatus string

const (
	StatusCreated   RemoteStatus = "created"
	StatusAccepted  RemoteStatus = "accepted"
	StatusShipped   RemoteStatus = "shipped"
	StatusDelivered RemoteStatus = "delivered"
	StatusRejected  RemoteStatus = "rejected"
	StatusFailed    RemoteStatus = "failed"
)

// TerminalSuccess reports whether the remote side considers fulfilment done
// or irreversibly under way.
func (s RemoteStatus) TerminalSuccess() bool {
	return s == StatusShipped || s == StatusDelivered
}

func (s RemoteStatus) TerminalFailure() bool {
	return s == StatusRejected || s == StatusFailed
}

// Adapter is the uniform capability contract every integrated supplier
// implements.
type Adapter interface {
	// FetchCatalog streams the remote catalog page by page into emit. The
	// sequence is finite and non-restartable; a non-nil emit error aborts
	// the stream.
	FetchCatalog(ctx context.Context, emit func(RemoteProduct) error) error

	// PushOrder places the given lines with the supplier. Idempotency is the
	// adapter's responsibility, keyed on req.IdempotencyKey.
	PushOrder(ctx context.Context, req PushOrderRequest) (RemoteOrderHandle, error)

	// OrderStatus is read-only; it can fail with ErrUnavailable only.
	OrderStatus(ctx context.Context, h RemoteOrderHandle) (RemoteStatus, error)
}
