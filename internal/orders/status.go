package orders

import "storefront-sync/internal/supplier"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusFailed     Status = "failed"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusCancelled: true, StatusFailed: true},
	StatusProcessing: {StatusShipped: true, StatusDelivered: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
	StatusFailed:     {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// SupplierOrderStatus mirrors the supplier-agnostic remote vocabulary
// one-to-one; the per-supplier mapping lives inside each adapter.
type SupplierOrderStatus string

const (
	SupplierOrderCreated   SupplierOrderStatus = "created"
	SupplierOrderAccepted  SupplierOrderStatus = "accepted"
	SupplierOrderShipped   SupplierOrderStatus = "shipped"
	SupplierOrderDelivered SupplierOrderStatus = "delivered"
	SupplierOrderRejected  SupplierOrderStatus = "rejected"
	SupplierOrderFailed    SupplierOrderStatus = "failed"
)

func FromRemote(s supplier.RemoteStatus) SupplierOrderStatus {
	return SupplierOrderStatus(s)
}

func (s SupplierOrderStatus) TerminalSuccess() bool {
	return supplier.RemoteStatus(s).TerminalSuccess()
}

func (s SupplierOrderStatus) TerminalFailure() bool {
	return supplier.RemoteStatus(s).TerminalFailure()
}

// Open means the remote side may still move; delivered and both failure
// states stop the polling loop. Shipped stays open so delivery is observed.
func (s SupplierOrderStatus) Open() bool {
	return s != SupplierOrderDelivered && !s.TerminalFailure()
}
