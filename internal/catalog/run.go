package catalog

import "time"

const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
)

const (
	RunRunning = "running"
	RunSuccess = "success"
	RunPartial = "partial"
	RunFailed  = "failed"
)

// SyncOutcome is one supplier's result inside a run. Supplier name and type
// are captured from the run snapshot so persisted runs read without a join
// back to a row that may have changed since.
type SyncOutcome struct {
	SupplierID   string `json:"supplier_id"`
	SupplierName string `json:"supplier_name"`
	SupplierType string `json:"supplier_type"`
	Imported     int    `json:"imported"`
	Updated      int    `json:"updated"`
	Deactivated  int    `json:"deactivated"`
	Errors       int    `json:"errors"`
	Error        string `json:"error,omitempty"`
	Skipped      bool   `json:"skipped,omitempty"` // another run holds this supplier's lock
}

type Run struct {
	ID          string        `json:"id"`
	Trigger     string        `json:"trigger"`
	Status      string        `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Imported    int           `json:"imported"`
	Updated     int           `json:"updated"`
	Deactivated int           `json:"deactivated"`
	Errors      int           `json:"errors"`
	Outcomes    []SyncOutcome `json:"outcomes"`
}

// Suppliers counts outcomes that actually ran (lock-skipped ones excluded).
func (r *Run) Suppliers() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Skipped {
			n++
		}
	}
	return n
}

func (r *Run) SuccessfulSyncs() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Skipped && o.Error == "" {
			n++
		}
	}
	return n
}

func (r *Run) finalize(now time.Time) {
	r.FinishedAt = now
	for _, o := range r.Outcomes {
		r.Imported += o.Imported
		r.Updated += o.Updated
		r.Deactivated += o.Deactivated
		r.Errors += o.Errors
	}
	switch {
	case r.Errors == 0:
		r.Status = RunSuccess
	case r.SuccessfulSyncs() > 0:
		r.Status = RunPartial
	default:
		r.Status = RunFailed
	}
}
