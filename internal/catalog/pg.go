package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgSupplierStore struct{ DB *pgxpool.Pool }

var _ SupplierStore = (*PgSupplierStore)(nil)

func (s *PgSupplierStore) ListActive(ctx context.Context) ([]Supplier, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, name, type, base_url, api_key, active, auth_failures
		FROM suppliers WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		var sp Supplier
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.Type, &sp.BaseURL, &sp.APIKey, &sp.Active, &sp.AuthFailures); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *PgSupplierStore) Get(ctx context.Context, id string) (*Supplier, error) {
	var sp Supplier
	err := s.DB.QueryRow(ctx, `
		SELECT id, name, type, base_url, api_key, active, auth_failures
		FROM suppliers WHERE id=$1`, id).
		Scan(&sp.ID, &sp.Name, &sp.Type, &sp.BaseURL, &sp.APIKey, &sp.Active, &sp.AuthFailures)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSupplierNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

func (s *PgSupplierStore) RecordAuthFailure(ctx context.Context, id string) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, `
		UPDATE suppliers SET auth_failures=auth_failures+1, updated_at=now()
		WHERE id=$1 RETURNING auth_failures`, id).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrSupplierNotFound
	}
	return n, err
}

func (s *PgSupplierStore) ResetAuthFailures(ctx context.Context, id string) error {
	_, err := s.DB.Exec(ctx, `UPDATE suppliers SET auth_failures=0, updated_at=now() WHERE id=$1`, id)
	return err
}

func (s *PgSupplierStore) Deactivate(ctx context.Context, id string) error {
	_, err := s.DB.Exec(ctx, `UPDATE suppliers SET active=false, updated_at=now() WHERE id=$1`, id)
	return err
}

type PgProductStore struct{ DB *pgxpool.Pool }

var _ ProductStore = (*PgProductStore)(nil)

func (s *PgProductStore) ListBySupplier(ctx context.Context, supplierID string) ([]Product, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, supplier_id, sku, name, price_cents, stock, active, last_synced_at
		FROM products WHERE supplier_id=$1`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SupplierID, &p.SKU, &p.Name, &p.PriceCents, &p.Stock, &p.Active, &p.LastSyncedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PgProductStore) Upsert(ctx context.Context, p Product) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO products(id, supplier_id, sku, name, price_cents, stock, active, last_synced_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (supplier_id, sku) DO UPDATE SET
			name=EXCLUDED.name,
			price_cents=EXCLUDED.price_cents,
			stock=EXCLUDED.stock,
			active=EXCLUDED.active,
			last_synced_at=EXCLUDED.last_synced_at`,
		p.ID, p.SupplierID, p.SKU, p.Name, p.PriceCents, p.Stock, p.Active, p.LastSyncedAt)
	if err != nil {
		return fmt.Errorf("upsert product %s/%s: %w", p.SupplierID, p.SKU, err)
	}
	return nil
}

func (s *PgProductStore) TouchSynced(ctx context.Context, supplierID string, skus []string, ts time.Time) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE products SET last_synced_at=$3
		WHERE supplier_id=$1 AND sku = ANY($2)`, supplierID, skus, ts)
	return err
}

func (s *PgProductStore) Deactivate(ctx context.Context, supplierID string, skus []string) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE products SET active=false
		WHERE supplier_id=$1 AND sku = ANY($2)`, supplierID, skus)
	return err
}

type PgRunStore struct{ DB *pgxpool.Pool }

var _ RunStore = (*PgRunStore)(nil)

func (s *PgRunStore) Begin(ctx context.Context, r *Run) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO sync_logs(id, trigger, status, started_at)
		VALUES ($1,$2,$3,$4)`, r.ID, r.Trigger, r.Status, r.StartedAt)
	if err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}
	return nil
}

func (s *PgRunStore) Finish(ctx context.Context, r *Run) error {
	details, err := json.Marshal(r.Outcomes)
	if err != nil {
		return err
	}
	// Guarded on status so a finalized run can never be rewritten.
	ct, err := s.DB.Exec(ctx, `
		UPDATE sync_logs
		SET status=$2, finished_at=$3, imported=$4, updated=$5, deactivated=$6, errors=$7, details=$8
		WHERE id=$1 AND status='running'`,
		r.ID, r.Status, r.FinishedAt, r.Imported, r.Updated, r.Deactivated, r.Errors, details)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("sync run %s already finalized", r.ID)
	}
	return nil
}

func (s *PgRunStore) LastRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, trigger, status, started_at,
		       COALESCE(finished_at, started_at),
		       imported, updated, deactivated, errors, COALESCE(details, '[]')
		FROM sync_logs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		var details []byte
		if err := rows.Scan(&r.ID, &r.Trigger, &r.Status, &r.StartedAt, &r.FinishedAt,
			&r.Imported, &r.Updated, &r.Deactivated, &r.Errors, &details); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(details, &r.Outcomes); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
