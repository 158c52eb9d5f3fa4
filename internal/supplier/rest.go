package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// restAdapter talks to a supplier's JSON API. Both integrated supplier types
// expose the same catalog/order shape and differ only in endpoint paths and
// status vocabulary, which the variant config absorbs.
type restAdapter struct {
	name      string
	baseURL   string
	apiKey    string
	client    *http.Client
	catalog   string
	orders    string
	statusMap map[string]RemoteStatus
}

type catalogPage struct {
	Items      []RemoteProduct `json:"items"`
	NextCursor string          `json:"next_cursor"`
}

// maxCatalogPages bounds pagination against suppliers whose cursors never
// terminate.
const maxCatalogPages = 10000

func (a *restAdapter) FetchCatalog(ctx context.Context, emit func(RemoteProduct) error) error {
	cursor := ""
	for n := 0; ; n++ {
		if n >= maxCatalogPages {
			return fmt.Errorf("%s: catalog pagination exceeded %d pages", a.name, maxCatalogPages)
		}
		u := a.baseURL + a.catalog
		if cursor != "" {
			u += "?cursor=" + url.QueryEscape(cursor)
		}
		var page catalogPage
		if err := a.do(ctx, http.MethodGet, u, nil, "", &page); err != nil {
			return err
		}
		for _, p := range page.Items {
			if err := emit(p); err != nil {
				return err
			}
		}
		if page.NextCursor == "" {
			return nil
		}
		if page.NextCursor == cursor {
			return fmt.Errorf("%s: catalog cursor %q did not advance", a.name, cursor)
		}
		cursor = page.NextCursor
	}
}

func (a *restAdapter) PushOrder(ctx context.Context, req PushOrderRequest) (RemoteOrderHandle, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return RemoteOrderHandle{}, err
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := a.do(ctx, http.MethodPost, a.baseURL+a.orders, body, req.IdempotencyKey, &resp); err != nil {
		return RemoteOrderHandle{}, err
	}
	if resp.ID == "" {
		return RemoteOrderHandle{}, fmt.Errorf("%w: %s returned no order id", ErrUnavailable, a.name)
	}
	return RemoteOrderHandle{RemoteID: resp.ID}, nil
}

func (a *restAdapter) OrderStatus(ctx context.Context, h RemoteOrderHandle) (RemoteStatus, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := a.do(ctx, http.MethodGet, a.baseURL+a.orders+"/"+url.PathEscape(h.RemoteID), nil, "", &resp); err != nil {
		return "", err
	}
	st, ok := a.statusMap[resp.Status]
	if !ok {
		return "", fmt.Errorf("%s: unknown remote status %q", a.name, resp.Status)
	}
	return st, nil
}

func (a *restAdapter) do(ctx context.Context, method, u string, body []byte, idemKey string, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		// Timeouts and transport errors are indistinguishable to the caller.
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, a.name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusCreated:
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrAuth, a.name)
	case resp.StatusCode == http.StatusUnprocessableEntity, resp.StatusCode == http.StatusConflict:
		return &RejectedError{Reason: readReason(resp.Body)}
	default:
		return fmt.Errorf("%w: %s: http %d", ErrUnavailable, a.name, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", ErrUnavailable, a.name, err)
	}
	return nil
}

func readReason(r io.Reader) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&e); err != nil || e.Error == "" {
		return "rejected"
	}
	return e.Error
}

var _ Adapter = (*restAdapter)(nil)

// Timeout is applied per request via the shared client; exceeding it surfaces
// as ErrUnavailable like any other transport failure.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
