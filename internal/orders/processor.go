package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "storefront-sync/internal/kafka"
	"storefront-sync/internal/supplier"
)

// SupplierOrderCreator is the slice of the supplier manager the processor
// needs: place remote orders for every supplier an order touches.
type SupplierOrderCreator interface {
	CreateSupplierOrder(ctx context.Context, orderID string) (bool, error)
}

// AdapterSource resolves the adapter for a supplier id at call time, so a
// supplier reconfigured between polls is picked up without a restart.
type AdapterSource interface {
	AdapterFor(ctx context.Context, supplierID string) (supplier.Adapter, error)
}

type EventSink interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// ReviewPolicy decides what a terminal supplier-order failure does to the
// parent order.
type ReviewPolicy string

const (
	// ReviewFlag surfaces the order for manual review without forcing a
	// status change. Default.
	ReviewFlag ReviewPolicy = "flag"
	// ReviewCancel cancels the parent order outright.
	ReviewCancel ReviewPolicy = "cancel"
)

// Processor drives a purchased order through supplier placement and status
// tracking to a terminal state.
type Processor struct {
	Store       Store
	Creator     SupplierOrderCreator
	Adapters    AdapterSource
	Backoff     supplier.Backoff
	MaxAttempts int
	Policy      ReviewPolicy
	Events      EventSink // nil disables publishing
	Service     string
}

// ProcessNewOrder places supplier orders for a paid pending order. On full
// success the order moves to processing; otherwise it stays pending for the
// next scheduled attempt, up to MaxAttempts, after which it is failed and
// flagged for manual intervention.
func (p *Processor) ProcessNewOrder(ctx context.Context, orderID string) (bool, error) {
	o, err := p.Store.GetOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	if len(o.Items) == 0 {
		return false, fmt.Errorf("order %s has no line items", orderID)
	}
	if o.Status != StatusPending {
		// Re-delivered trigger for an order already picked up.
		return o.Status == StatusProcessing, nil
	}
	if o.PaymentStatus != PaymentPaid {
		return false, fmt.Errorf("order %s is not paid", orderID)
	}

	ok, err := p.Creator.CreateSupplierOrder(ctx, orderID)
	if ok {
		if err := p.Store.SetStatus(ctx, orderID, StatusProcessing); err != nil {
			return false, err
		}
		log.Info().Str("order_id", orderID).Msg("order moved to processing")
		p.publish(EventOrderProcessing, orderID, OrderStatusPayload{
			OrderID: orderID, From: string(StatusPending), To: string(StatusProcessing),
		})
		return true, nil
	}
	if err != nil {
		log.Warn().Err(err).Str("order_id", orderID).Msg("supplier placement incomplete")
	}

	n, berr := p.Store.BumpAttempts(ctx, orderID)
	if berr != nil {
		return false, berr
	}
	if n >= p.MaxAttempts {
		if serr := p.Store.SetStatus(ctx, orderID, StatusFailed); serr != nil {
			return false, serr
		}
		if ferr := p.Store.FlagReview(ctx, orderID); ferr != nil {
			return false, ferr
		}
		log.Error().Str("order_id", orderID).Int("attempts", n).Msg("order failed after max attempts")
		p.publish(EventOrderFailed, orderID, OrderStatusPayload{
			OrderID: orderID, From: string(StatusPending), To: string(StatusFailed),
		})
	}
	return false, err
}

type ProcessSummary struct {
	Processed    int
	Errors       int
	TotalPending int
}

// ProcessPending scans paid pending orders and runs each through
// ProcessNewOrder. Per-order failures never abort the scan.
func (p *Processor) ProcessPending(ctx context.Context) (ProcessSummary, error) {
	ids, err := p.Store.ListPendingPaid(ctx)
	if err != nil {
		return ProcessSummary{}, fmt.Errorf("scan pending orders: %w", err)
	}
	sum := ProcessSummary{TotalPending: len(ids)}
	for _, id := range ids {
		ok, err := p.ProcessNewOrder(ctx, id)
		if ok {
			sum.Processed++
		}
		if err != nil {
			sum.Errors++
		}
	}
	return sum, nil
}

// TrackSupplierOrders polls every non-terminal supplier order, applies the
// remote status, and settles parent orders whose supplier orders all reached
// terminal success. Only the initial scan failure is fatal.
func (p *Processor) TrackSupplierOrders(ctx context.Context) error {
	open, err := p.Store.ListOpenSupplierOrders(ctx)
	if err != nil {
		return fmt.Errorf("scan supplier orders: %w", err)
	}

	touched := make(map[string]bool)
	for _, so := range open {
		ad, err := p.Adapters.AdapterFor(ctx, so.SupplierID)
		if err != nil {
			log.Warn().Err(err).Str("supplier_id", so.SupplierID).Msg("no adapter for supplier")
			continue
		}
		var remote supplier.RemoteStatus
		err = p.Backoff.Retry(ctx, func(ctx context.Context) error {
			var e error
			remote, e = ad.OrderStatus(ctx, supplier.RemoteOrderHandle{RemoteID: so.RemoteOrderID})
			return e
		})
		if err != nil {
			log.Warn().Err(err).Str("supplier_order_id", so.ID).Msg("status poll failed")
			continue
		}

		next := FromRemote(remote)
		if next == so.Status {
			continue
		}
		if err := p.Store.SetSupplierOrderStatus(ctx, so.ID, next); err != nil {
			log.Error().Err(err).Str("supplier_order_id", so.ID).Msg("status update failed")
			continue
		}
		touched[so.OrderID] = true

		if next.TerminalFailure() {
			p.handleTerminalFailure(ctx, so, next)
		}
	}

	for orderID := range touched {
		p.settleOrder(ctx, orderID)
	}
	return nil
}

// handleTerminalFailure applies the configured policy; the conservative
// default flags the order instead of cancelling it.
func (p *Processor) handleTerminalFailure(ctx context.Context, so SupplierOrder, st SupplierOrderStatus) {
	if err := p.Store.FlagReview(ctx, so.OrderID); err != nil {
		log.Error().Err(err).Str("order_id", so.OrderID).Msg("review flag failed")
		return
	}
	p.publish(EventOrderReviewFlagged, so.OrderID, ReviewFlaggedPayload{
		OrderID: so.OrderID, SupplierOrderID: so.ID, SupplierID: so.SupplierID, Reason: string(st),
	})

	if p.Policy == ReviewCancel {
		o, err := p.Store.GetOrder(ctx, so.OrderID)
		if err != nil || !CanTransition(o.Status, StatusCancelled) {
			return
		}
		if err := p.Store.SetStatus(ctx, so.OrderID, StatusCancelled); err != nil {
			log.Error().Err(err).Str("order_id", so.OrderID).Msg("cancel failed")
		}
	}
}

func (p *Processor) settleOrder(ctx context.Context, orderID string) {
	o, err := p.Store.GetOrder(ctx, orderID)
	if err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("settle: load order failed")
		return
	}
	sos, err := p.Store.SupplierOrdersForOrder(ctx, orderID)
	if err != nil || len(sos) == 0 {
		return
	}

	allDelivered, allShipped := true, true
	for _, so := range sos {
		if so.Status != SupplierOrderDelivered {
			allDelivered = false
		}
		if !so.Status.TerminalSuccess() {
			allShipped = false
		}
	}

	target := Status("")
	event := ""
	switch {
	case allDelivered:
		target, event = StatusDelivered, EventOrderDelivered
	case allShipped:
		target, event = StatusShipped, EventOrderShipped
	default:
		return
	}
	if target == o.Status || !CanTransition(o.Status, target) {
		return
	}
	if err := p.Store.SetStatus(ctx, orderID, target); err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("settle: status update failed")
		return
	}
	log.Info().Str("order_id", orderID).Str("status", string(target)).Msg("order settled")
	p.publish(event, orderID, OrderStatusPayload{
		OrderID: orderID, From: string(o.Status), To: string(target),
	})
}

func (p *Processor) publish(eventType, orderID string, payload any) {
	if p.Events == nil {
		return
	}
	env := kafkax.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.Service,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Events.Publish(PartitionKey(orderID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
