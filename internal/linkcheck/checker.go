package linkcheck

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"storefront-sync/internal/redisx"
)

type BrokenLink struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code,omitempty"`
	Reason     string `json:"reason"`
}

type Report struct {
	CheckedAt time.Time    `json:"checked_at"`
	Checked   int          `json:"checked"`
	Broken    []BrokenLink `json:"broken"`
}

// Checker audits external reachability of the configured site URLs. It shares
// the sync pipeline's run-summarize-persist shape but is otherwise
// independent of it.
type Checker struct {
	URLs    []string
	Client  *http.Client
	Workers int
	Store   ReportStore
	RDB     *redis.Client // nil disables the status cache
}

// Run probes every URL with a bounded pool, persists the report, and caches
// it for Status.
func (c *Checker) Run(ctx context.Context) (Report, error) {
	report := Report{CheckedAt: time.Now().UTC(), Checked: len(c.URLs)}

	var mu sync.Mutex
	g := new(errgroup.Group)
	if c.Workers > 0 {
		g.SetLimit(c.Workers)
	}
	for _, u := range c.URLs {
		u := u
		g.Go(func() error {
			if bl, ok := c.probe(ctx, u); !ok {
				mu.Lock()
				report.Broken = append(report.Broken, bl)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	sort.Slice(report.Broken, func(i, j int) bool { return report.Broken[i].URL < report.Broken[j].URL })

	if c.Store != nil {
		if err := c.Store.Insert(ctx, report); err != nil {
			return report, fmt.Errorf("persist link report: %w", err)
		}
	}
	c.cache(ctx, report)
	log.Info().Int("checked", report.Checked).Int("broken", len(report.Broken)).Msg("link check finished")
	return report, nil
}

// probe prefers HEAD and falls back to GET for servers that refuse it.
func (c *Checker) probe(ctx context.Context, u string) (BrokenLink, bool) {
	code, err := c.request(ctx, http.MethodHead, u)
	if err == nil && code == http.StatusMethodNotAllowed {
		code, err = c.request(ctx, http.MethodGet, u)
	}
	if err != nil {
		return BrokenLink{URL: u, Reason: err.Error()}, false
	}
	if code >= http.StatusBadRequest {
		return BrokenLink{URL: u, StatusCode: code, Reason: http.StatusText(code)}, false
	}
	return BrokenLink{}, true
}

func (c *Checker) request(ctx context.Context, method, u string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// Status returns the most recent report: the cached one when available,
// otherwise the last persisted one. Nil when no check has run yet.
func (c *Checker) Status(ctx context.Context) (*Report, error) {
	if c.RDB != nil {
		if b, err := c.RDB.Get(ctx, redisx.KeyLinkReport).Bytes(); err == nil {
			var r Report
			if err := unmarshalReport(b, &r); err == nil {
				return &r, nil
			}
		}
	}
	if c.Store == nil {
		return nil, nil
	}
	return c.Store.Last(ctx)
}

func (c *Checker) cache(ctx context.Context, r Report) {
	if c.RDB == nil {
		return
	}
	b, err := marshalReport(r)
	if err != nil {
		return
	}
	if err := c.RDB.Set(ctx, redisx.KeyLinkReport, b, redisx.TTLLinkReport).Err(); err != nil {
		log.Warn().Err(err).Msg("link report cache write failed")
	}
}
