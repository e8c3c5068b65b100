package transport

import "fmt"

// StatusError indicates a non-2xx HTTP response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transport: %s returned status %d", e.URL, e.Status)
}

// RequestError indicates a network-level failure (DNS, dial, timeout).
type RequestError struct {
	URL string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Errorf("transport: request %s: %w", e.URL, e.Err).Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
