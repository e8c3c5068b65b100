// Package crawler implements the three pagination drivers: classic ?page=N
// HTML listings for products, GraphQL cursor pagination for reviews, and
// HTMX fragment chaining for testimonials. Each crawler owns its own client
// state and seen-set; pagination inside a crawler is strictly sequential
// because every next fetch depends on data from the previous response.
package crawler

import (
	"context"
	"time"
)

// Dataset source names, used for metrics labels, log attributes, and output
// file names.
const (
	SourceProducts     = "products"
	SourceReviews      = "reviews"
	SourceTestimonials = "testimonials"
)

// throttle blocks between successive fetches within a single crawler's
// sequence. It is a politeness measure, not a correctness mechanism.
func throttle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
