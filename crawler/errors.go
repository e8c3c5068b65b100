package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/brandreport/harvester/transport"
)

// ContractError indicates a response whose shape no longer matches what the
// crawler expects, an upstream API change rather than a network fault. It
// carries the request URL and the raw payload that failed the check.
type ContractError struct {
	URL     string
	Detail  string
	Payload string
}

func (e *ContractError) Error() string {
	if e.Payload != "" {
		return fmt.Sprintf("contract: %s: %s: %s", e.URL, e.Detail, e.Payload)
	}
	return fmt.Sprintf("contract: %s: %s", e.URL, e.Detail)
}

// errorTypeLabel maps a crawl error onto a metrics label.
func errorTypeLabel(err error) string {
	if err == nil {
		return "none"
	}

	var contract *ContractError
	if errors.As(err, &contract) {
		return "contract"
	}

	var status *transport.StatusError
	if errors.As(err, &status) {
		switch status.Status {
		case http.StatusForbidden:
			return "forbidden"
		case http.StatusNotFound:
			return "not_found"
		case http.StatusTooManyRequests:
			return "rate_limited"
		default:
			return "status"
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "connection"
	}

	return "other"
}
