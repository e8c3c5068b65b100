// Package models defines the record types produced by the harvester.
package models

import (
	"strconv"
	"time"
)

// Product is one item from the paginated HTML listings. URL is the identity
// key; Price is null in the output when the listing carries no price node.
type Product struct {
	Name             string   `json:"name"`
	URL              string   `json:"url"`
	Price            *float64 `json:"price"`
	ShortDescription string   `json:"short_description"`
	Image            string   `json:"image"`
}

// Review is one node from the GraphQL reviews connection. RID is whatever
// scalar the API returns (string or number) and is carried through verbatim.
type Review struct {
	RID    any      `json:"rid"`
	Date   *string  `json:"date"`
	Rating *float64 `json:"rating"`
	Text   string   `json:"text"`
}

// Testimonial is one card from the HTMX testimonial fragments. Rating is the
// count of rating symbols on the card, zero when the card has none.
type Testimonial struct {
	Author string `json:"author"`
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

// Key returns the composite identity used to deduplicate testimonials across
// fragment pages.
func (t Testimonial) Key() string {
	return t.Author + "\x00" + t.Text + "\x00" + strconv.Itoa(t.Rating)
}

// CrawlResult summarises one crawler's run for the end-of-run report.
type CrawlResult struct {
	Source       string
	Records      int
	PagesFetched int
	Duplicates   int
	StartTime    time.Time
	EndTime      time.Time
	Err          error
}

// Duration reports how long the crawl took.
func (r CrawlResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}
