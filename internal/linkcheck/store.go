package linkcheck

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReportStore interface {
	Insert(ctx context.Context, r Report) error
	Last(ctx context.Context) (*Report, error)
}

type PgReportStore struct{ DB *pgxpool.Pool }

var _ ReportStore = (*PgReportStore)(nil)

func (s *PgReportStore) Insert(ctx context.Context, r Report) error {
	body, err := marshalReport(r)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
		INSERT INTO broken_links_reports(id, checked, broken, report, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		uuid.NewString(), r.Checked, len(r.Broken), body, r.CheckedAt)
	return err
}

func (s *PgReportStore) Last(ctx context.Context) (*Report, error) {
	var body []byte
	err := s.DB.QueryRow(ctx, `
		SELECT report FROM broken_links_reports
		ORDER BY created_at DESC LIMIT 1`).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r Report
	if err := unmarshalReport(body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func marshalReport(r Report) ([]byte, error)    { return json.Marshal(r) }
func unmarshalReport(b []byte, r *Report) error { return json.Unmarshal(b, r) }
