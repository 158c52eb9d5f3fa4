package supplier

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	TypeDropship  = "dropship"
	TypeWholesale = "wholesale"
)

// Registry builds adapters from the type discriminator stored on each
// supplier row. Adapters are stateless, so one per (type, base_url, key)
// tuple is enough.
type Registry struct {
	Timeout time.Duration
	client  *http.Client
}

func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{Timeout: timeout, client: newHTTPClient(timeout)}
}

// Build selects a variant for the stored type. Unknown types are a
// configuration error, not a transient failure.
func (r *Registry) Build(typ, baseURL, apiKey string) (Adapter, error) {
	base := strings.TrimRight(baseURL, "/")
	switch typ {
	case TypeDropship:
		return &restAdapter{
			name:    TypeDropship,
			baseURL: base,
			apiKey:  apiKey,
			client:  r.client,
			catalog: "/v1/products",
			orders:  "/v1/orders",
			statusMap: map[string]RemoteStatus{
				"received":   StatusCreated,
				"confirmed":  StatusAccepted,
				"dispatched": StatusShipped,
				"delivered":  StatusDelivered,
				"declined":   StatusRejected,
				"error":      StatusFailed,
			},
		}, nil
	case TypeWholesale:
		return &restAdapter{
			name:    TypeWholesale,
			baseURL: base,
			apiKey:  apiKey,
			client:  r.client,
			catalog: "/api/catalog",
			orders:  "/api/purchase-orders",
			statusMap: map[string]RemoteStatus{
				"NEW":        StatusCreated,
				"ACCEPTED":   StatusAccepted,
				"IN_TRANSIT": StatusShipped,
				"COMPLETED":  StatusDelivered,
				"REJECTED":   StatusRejected,
				"CANCELLED":  StatusFailed,
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown supplier type %q", typ)
	}
}
