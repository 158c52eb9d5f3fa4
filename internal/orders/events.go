package orders

const TopicOrderEvents = "order.events"

const (
	EventOrderProcessing    = "OrderProcessing"
	EventOrderShipped       = "OrderShipped"
	EventOrderDelivered     = "OrderDelivered"
	EventOrderFailed        = "OrderFailed"
	EventOrderReviewFlagged = "OrderReviewFlagged"
)

type OrderStatusPayload struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type ReviewFlaggedPayload struct {
	OrderID         string `json:"order_id"`
	SupplierOrderID string `json:"supplier_order_id"`
	SupplierID      string `json:"supplier_id"`
	Reason          string `json:"reason"`
}

// All events for one order share a partition key to keep them ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
