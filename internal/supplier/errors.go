package supplier

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable covers transport failures and timeouts. Retryable.
	ErrUnavailable = errors.New("supplier unavailable")

	// ErrAuth means the supplier rejected our credentials. Not retryable
	// until the credentials are fixed.
	ErrAuth = errors.New("supplier rejected credentials")
)

// RejectedError is a business-rule rejection (e.g. no stock). Never retried
// automatically; surfaced for admin review.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("supplier rejected order: %s", e.Reason)
}

func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
