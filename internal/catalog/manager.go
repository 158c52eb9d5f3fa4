package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	kafkax "storefront-sync/internal/kafka"
	"storefront-sync/internal/orders"
	"storefront-sync/internal/supplier"
)

const TopicSyncCompleted = "catalog.sync.completed"

const EventSyncCompleted = "SupplierSyncCompleted"

// Locker fences the named invariant: at most one in-flight sync per supplier
// id at any time, across concurrent runs and processes.
type Locker interface {
	TryLock(ctx context.Context, supplierID string) (release func(), ok bool, err error)
}

type AdapterBuilder interface {
	Build(typ, baseURL, apiKey string) (supplier.Adapter, error)
}

// PushCache remembers remote order ids for pushes that succeeded before a
// crash could record the supplier-order row. Optional.
type PushCache interface {
	Get(ctx context.Context, orderID, supplierID string) (string, error)
	Set(ctx context.Context, orderID, supplierID, remoteID string) error
}

// Manager reconciles the local catalog against each supplier's remote one
// and places orders with suppliers.
type Manager struct {
	Suppliers SupplierStore
	Products  ProductStore
	Runs      RunStore
	Orders    orders.Store
	Adapters  AdapterBuilder
	Locks     Locker
	Backoff   supplier.Backoff

	Workers          int // bounded fan-out; effective pool is min(Workers, supplier count)
	AuthFailureLimit int

	Pushes  PushCache        // nil disables the crash-recovery shortcut
	Events  orders.EventSink // nil disables publishing
	Service string
}

// SyncAll snapshots the active suppliers and reconciles each one
// independently. A failure on one supplier never aborts its siblings; only
// an error before any per-supplier work begins is fatal to the run.
func (m *Manager) SyncAll(ctx context.Context, trigger string) (*Run, error) {
	sups, err := m.Suppliers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot suppliers: %w", err)
	}

	run := &Run{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := m.Runs.Begin(ctx, run); err != nil {
		return nil, fmt.Errorf("open sync run: %w", err)
	}

	workers := m.Workers
	if workers <= 0 || workers > len(sups) {
		workers = len(sups)
	}
	var mu sync.Mutex
	g := new(errgroup.Group)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, s := range sups {
		s := s
		g.Go(func() error {
			out := m.syncSupplier(ctx, s, run.StartedAt)
			mu.Lock()
			run.Outcomes = append(run.Outcomes, out)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	run.finalize(time.Now().UTC())
	if err := m.Runs.Finish(ctx, run); err != nil {
		return run, fmt.Errorf("finalize sync run: %w", err)
	}

	log.Info().Str("run_id", run.ID).Str("status", run.Status).
		Int("imported", run.Imported).Int("updated", run.Updated).Int("errors", run.Errors).
		Msg("catalog sync finished")
	m.publishRun(run)
	return run, nil
}

func (m *Manager) syncSupplier(ctx context.Context, s Supplier, runTS time.Time) SyncOutcome {
	out := SyncOutcome{SupplierID: s.ID, SupplierName: s.Name, SupplierType: s.Type}

	release, ok, err := m.Locks.TryLock(ctx, s.ID)
	if err != nil {
		out.Errors++
		out.Error = err.Error()
		return out
	}
	if !ok {
		out.Skipped = true
		log.Info().Str("supplier_id", s.ID).Msg("sync already in flight, skipping")
		return out
	}
	defer release()

	ad, err := m.Adapters.Build(s.Type, s.BaseURL, s.APIKey)
	if err != nil {
		out.Errors++
		out.Error = err.Error()
		return out
	}

	local, err := m.Products.ListBySupplier(ctx, s.ID)
	if err != nil {
		out.Errors++
		out.Error = err.Error()
		return out
	}

	var remote []supplier.RemoteProduct
	err = m.Backoff.Retry(ctx, func(ctx context.Context) error {
		remote = remote[:0] // the stream is non-restartable; a retry starts over
		return ad.FetchCatalog(ctx, func(p supplier.RemoteProduct) error {
			remote = append(remote, p)
			return nil
		})
	})
	if err != nil {
		out.Errors++
		out.Error = err.Error()
		if errors.Is(err, supplier.ErrAuth) {
			m.authFailure(ctx, s)
		}
		log.Warn().Err(err).Str("supplier_id", s.ID).Msg("catalog fetch failed")
		return out
	}
	if s.AuthFailures > 0 {
		if err := m.Suppliers.ResetAuthFailures(ctx, s.ID); err != nil {
			log.Warn().Err(err).Str("supplier_id", s.ID).Msg("auth counter reset failed")
		}
	}

	cs := Diff(local, remote)
	for _, rp := range cs.New {
		p := Product{
			ID:         uuid.NewString(),
			SupplierID: s.ID,
			SKU:        rp.SKU,
			Name:       rp.Name,
			PriceCents: rp.PriceCents,
			Stock:      rp.Stock,
			Active:     true,
		}
		p.LastSyncedAt = runTS
		if err := m.Products.Upsert(ctx, p); err != nil {
			out.Errors++
			continue
		}
		out.Imported++
	}
	for _, p := range cs.Changed {
		p.LastSyncedAt = runTS
		if err := m.Products.Upsert(ctx, p); err != nil {
			out.Errors++
			continue
		}
		out.Updated++
	}
	if len(cs.UnchangedSKUs) > 0 {
		if err := m.Products.TouchSynced(ctx, s.ID, cs.UnchangedSKUs, runTS); err != nil {
			out.Errors++
		}
	}
	if len(cs.Stale) > 0 {
		skus := make([]string, 0, len(cs.Stale))
		for _, p := range cs.Stale {
			skus = append(skus, p.SKU)
		}
		if err := m.Products.Deactivate(ctx, s.ID, skus); err != nil {
			out.Errors++
		} else {
			out.Deactivated = len(skus)
		}
	}
	return out
}

func (m *Manager) authFailure(ctx context.Context, s Supplier) {
	n, err := m.Suppliers.RecordAuthFailure(ctx, s.ID)
	if err != nil {
		log.Error().Err(err).Str("supplier_id", s.ID).Msg("auth counter bump failed")
		return
	}
	if m.AuthFailureLimit > 0 && n >= m.AuthFailureLimit {
		if err := m.Suppliers.Deactivate(ctx, s.ID); err != nil {
			log.Error().Err(err).Str("supplier_id", s.ID).Msg("supplier deactivation failed")
			return
		}
		log.Warn().Str("supplier_id", s.ID).Int("auth_failures", n).
			Msg("supplier deactivated until credentials are fixed")
	}
}

// CreateSupplierOrder pushes the order's line items to every distinct
// supplier they reference. Forward-only saga: succeeded pushes are never
// rolled back; failed suppliers are retried on the next attempt, and the
// result is true only once every required supplier has a recorded success.
func (m *Manager) CreateSupplierOrder(ctx context.Context, orderID string) (bool, error) {
	o, err := m.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	if len(o.Items) == 0 {
		return false, fmt.Errorf("order %s has no line items", orderID)
	}

	bySupplier := make(map[string][]supplier.OrderLine)
	for _, it := range o.Items {
		bySupplier[it.SupplierID] = append(bySupplier[it.SupplierID], supplier.OrderLine{
			SKU: it.SKU, Qty: it.Qty, PriceCents: it.PriceCents,
		})
	}

	existing, err := m.Orders.SupplierOrdersForOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	done := make(map[string]bool, len(existing))
	for _, so := range existing {
		done[so.SupplierID] = true
	}

	allOK := true
	var firstErr error
	for supplierID, lines := range bySupplier {
		if done[supplierID] {
			continue // already placed on an earlier attempt
		}
		remoteID, err := m.pushOne(ctx, orderID, supplierID, lines)
		if err != nil {
			allOK = false
			if firstErr == nil {
				firstErr = err
			}
			log.Warn().Err(err).Str("order_id", orderID).Str("supplier_id", supplierID).
				Msg("supplier push failed")
			continue
		}
		so := &orders.SupplierOrder{
			OrderID:       orderID,
			SupplierID:    supplierID,
			RemoteOrderID: remoteID,
			Status:        orders.SupplierOrderCreated,
			Attempts:      1,
		}
		if err := m.Orders.InsertSupplierOrder(ctx, so); err != nil {
			allOK = false
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return allOK, firstErr
}

func (m *Manager) pushOne(ctx context.Context, orderID, supplierID string, lines []supplier.OrderLine) (string, error) {
	// A push that succeeded remotely but crashed before the row insert is
	// recovered from the cache instead of re-pushed.
	if m.Pushes != nil {
		if remoteID, err := m.Pushes.Get(ctx, orderID, supplierID); err == nil && remoteID != "" {
			return remoteID, nil
		}
	}

	s, err := m.Suppliers.Get(ctx, supplierID)
	if err != nil {
		return "", err
	}
	ad, err := m.Adapters.Build(s.Type, s.BaseURL, s.APIKey)
	if err != nil {
		return "", err
	}

	req := supplier.PushOrderRequest{
		OrderID:        orderID,
		IdempotencyKey: fmt.Sprintf("order:%s:supplier:%s", orderID, supplierID),
		Lines:          lines,
	}
	var h supplier.RemoteOrderHandle
	err = m.Backoff.Retry(ctx, func(ctx context.Context) error {
		var e error
		h, e = ad.PushOrder(ctx, req)
		return e
	})
	if err != nil {
		return "", err
	}
	if m.Pushes != nil {
		if cerr := m.Pushes.Set(ctx, orderID, supplierID, h.RemoteID); cerr != nil {
			log.Warn().Err(cerr).Str("order_id", orderID).Msg("push cache write failed")
		}
	}
	return h.RemoteID, nil
}

// AdapterFor lets the order processor poll supplier order status through the
// same registry and credentials the sync uses.
func (m *Manager) AdapterFor(ctx context.Context, supplierID string) (supplier.Adapter, error) {
	s, err := m.Suppliers.Get(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	return m.Adapters.Build(s.Type, s.BaseURL, s.APIKey)
}

func (m *Manager) publishRun(run *Run) {
	if m.Events == nil {
		return
	}
	env := kafkax.Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventSyncCompleted,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      m.Service,
		CorrelationID: run.ID,
		Payload:       kafkax.MustMarshal(run),
	}
	m.Events.Publish([]byte(run.ID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventSyncCompleted)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
