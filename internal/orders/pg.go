package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct{ DB *pgxpool.Pool }

var _ Store = (*PgStore)(nil)

func (s *PgStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	var o Order
	err := s.DB.QueryRow(ctx, `
		SELECT id, status, payment_status, attempts, needs_review, created_at, updated_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.Status, &o.PaymentStatus, &o.Attempts, &o.NeedsReview, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.Query(ctx, `
		SELECT id, order_id, product_id, supplier_id, sku, qty, price_cents
		FROM order_items WHERE order_id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.SupplierID, &it.SKU, &it.Qty, &it.PriceCents); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

func (s *PgStore) ListPendingPaid(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id FROM orders
		WHERE status='pending' AND payment_status='paid'
		ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PgStore) SetStatus(ctx context.Context, id string, st Status) error {
	ct, err := s.DB.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, st)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (s *PgStore) MarkProcessing(ctx context.Context, id string) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE orders SET status='processing', payment_status='paid', updated_at=now()
		WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (s *PgStore) BumpAttempts(ctx context.Context, id string) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, `
		UPDATE orders SET attempts=attempts+1, updated_at=now()
		WHERE id=$1 RETURNING attempts`, id).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrOrderNotFound
	}
	return n, err
}

func (s *PgStore) FlagReview(ctx context.Context, id string) error {
	_, err := s.DB.Exec(ctx, `UPDATE orders SET needs_review=true, updated_at=now() WHERE id=$1`, id)
	return err
}

// InsertSupplierOrder is retry-safe: the (order_id, supplier_id) pair is
// unique, so a second saga attempt cannot duplicate a recorded success.
func (s *PgStore) InsertSupplierOrder(ctx context.Context, so *SupplierOrder) error {
	if so.ID == "" {
		so.ID = uuid.NewString()
	}
	_, err := s.DB.Exec(ctx, `
		INSERT INTO supplier_orders(id, order_id, supplier_id, remote_order_id, status, attempts)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (order_id, supplier_id) DO NOTHING`,
		so.ID, so.OrderID, so.SupplierID, so.RemoteOrderID, so.Status, so.Attempts)
	if err != nil {
		return fmt.Errorf("insert supplier order: %w", err)
	}
	return nil
}

func (s *PgStore) SupplierOrdersForOrder(ctx context.Context, orderID string) ([]SupplierOrder, error) {
	return s.querySupplierOrders(ctx, `
		SELECT id, order_id, supplier_id, remote_order_id, status, attempts, created_at, updated_at
		FROM supplier_orders WHERE order_id=$1`, orderID)
}

func (s *PgStore) ListOpenSupplierOrders(ctx context.Context) ([]SupplierOrder, error) {
	return s.querySupplierOrders(ctx, `
		SELECT id, order_id, supplier_id, remote_order_id, status, attempts, created_at, updated_at
		FROM supplier_orders
		WHERE status NOT IN ('delivered','rejected','failed')
		ORDER BY created_at`)
}

func (s *PgStore) querySupplierOrders(ctx context.Context, q string, args ...any) ([]SupplierOrder, error) {
	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SupplierOrder
	for rows.Next() {
		var so SupplierOrder
		if err := rows.Scan(&so.ID, &so.OrderID, &so.SupplierID, &so.RemoteOrderID,
			&so.Status, &so.Attempts, &so.CreatedAt, &so.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, so)
	}
	return out, rows.Err()
}

func (s *PgStore) SetSupplierOrderStatus(ctx context.Context, id string, st SupplierOrderStatus) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE supplier_orders SET status=$2, updated_at=now()
		WHERE id=$1`, id, st)
	return err
}
