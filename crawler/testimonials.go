package crawler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/brandreport/harvester/config"
	"github.com/brandreport/harvester/markup"
	"github.com/brandreport/harvester/models"
	"github.com/brandreport/harvester/parser"
	"github.com/brandreport/harvester/transport"
)

// defaultSecretToken is the value the site currently embeds in its appData
// blob. Used only when the blob is absent from the initial page.
const defaultSecretToken = "secret123"

var testimonialShape = markup.Shape{
	"author": {Selector: "identicon-svg", Rule: markup.Attr, AttrName: "username"},
	"text":   {Selector: "p.text", Rule: markup.Text},
	"rating": {Selector: "span.rating svg", Rule: markup.Count},
}

// TestimonialCrawler drives the HTMX infinite-scroll endpoint. The initial
// page supplies both the first batch of cards and the fragment chain's entry
// point; every subsequent fragment embeds the URL of the next one until the
// chain ends. Fragment requests must carry the partial-content header set
// plus the site's secret token, or the endpoint rejects them.
type TestimonialCrawler struct {
	cfg     *config.Config
	client  *transport.Client
	metrics *Metrics
	seen    *SeenSet

	pages      int
	duplicates int
}

// NewTestimonialCrawler builds a testimonial crawler on its own transport
// client.
func NewTestimonialCrawler(cfg *config.Config, client *transport.Client, metrics *Metrics) (*TestimonialCrawler, error) {
	seen, err := NewSeenSet(cfg.SeenCapacity)
	if err != nil {
		return nil, err
	}
	return &TestimonialCrawler{cfg: cfg, client: client, metrics: metrics, seen: seen}, nil
}

// Run walks the fragment chain to its end and returns testimonials
// deduplicated by the (author, text, rating) identity in first-seen order.
func (c *TestimonialCrawler) Run(ctx context.Context) ([]models.Testimonial, error) {
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	firstURL := c.cfg.BaseURL + "/testimonials"

	doc, err := c.fetchDocument(ctx, firstURL, map[string]string{"Referer": c.cfg.BaseURL})
	if err != nil {
		return nil, err
	}

	collected, next := c.parseFragment(doc, base)
	headers := fragmentHeaders(firstURL, secretToken(doc))

	for page := 1; next != ""; page++ {
		if page > c.cfg.TestimonialsMaxPages {
			slog.Warn("testimonial chain stopped by page cap",
				slog.Int("max_pages", c.cfg.TestimonialsMaxPages),
			)
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		throttle(ctx, c.cfg.Delay)

		fragmentURL := next
		doc, err := c.fetchDocument(ctx, fragmentURL, headers)
		if err != nil {
			return nil, err
		}

		var items []models.Testimonial
		items, next = c.parseFragment(doc, base)
		if len(items) == 0 && next == "" {
			// Distinguishes a changed endpoint contract from plain network
			// failure: a live fragment always carries cards, a next link, or
			// both.
			err := &ContractError{
				URL:    fragmentURL,
				Detail: "fragment has neither testimonial cards nor a load-more link",
			}
			c.metrics.IncError(SourceTestimonials, errorTypeLabel(err))
			return nil, err
		}
		collected = append(collected, items...)
	}

	unique := make([]models.Testimonial, 0, len(collected))
	for _, item := range collected {
		if c.seen.Seen(item.Key()) {
			c.duplicates++
			c.metrics.IncDuplicate(SourceTestimonials)
			continue
		}
		unique = append(unique, item)
	}
	c.metrics.AddRecords(SourceTestimonials, len(unique))
	return unique, nil
}

// PagesFetched reports how many pages (initial plus fragments) were fetched.
func (c *TestimonialCrawler) PagesFetched() int { return c.pages }

// Duplicates reports how many cards the identity dedup dropped.
func (c *TestimonialCrawler) Duplicates() int { return c.duplicates }

func (c *TestimonialCrawler) fetchDocument(ctx context.Context, pageURL string, headers map[string]string) (*goquery.Document, error) {
	c.metrics.IncRequest(SourceTestimonials)
	start := time.Now()
	html, err := c.client.FetchHTML(ctx, pageURL, headers)
	if err != nil {
		c.metrics.IncError(SourceTestimonials, errorTypeLabel(err))
		return nil, err
	}
	c.metrics.ObserveDuration(time.Since(start))
	c.pages++

	doc, err := markup.Parse(html)
	if err != nil {
		contractErr := &ContractError{URL: pageURL, Detail: "response is not parseable HTML"}
		c.metrics.IncError(SourceTestimonials, errorTypeLabel(contractErr))
		return nil, contractErr
	}
	return doc, nil
}

// parseFragment handles both the full testimonials page and the partial
// fragment responses; they share the same card markup. The load-more card is
// itself a testimonial, so it is extracted like any other and left to the
// dedup pass.
func (c *TestimonialCrawler) parseFragment(doc *goquery.Document, base *url.URL) ([]models.Testimonial, string) {
	var items []models.Testimonial
	for _, fields := range markup.ExtractAll(doc.Selection, "div.testimonial", testimonialShape, base) {
		items = append(items, parser.TestimonialFromFields(fields))
	}

	next := doc.Find("div.testimonial[hx-get]").First().AttrOr("hx-get", "")
	return items, markup.ResolveURL(base, next)
}

// secretToken reads the site's secret header value from the appData JSON
// blob embedded in the initial page, falling back to the known static value
// when the blob is missing or unreadable.
func secretToken(doc *goquery.Document) string {
	raw := doc.Find("script#appData").First().Text()
	if raw == "" {
		return defaultSecretToken
	}
	var appData map[string]string
	if err := json.Unmarshal([]byte(raw), &appData); err != nil {
		return defaultSecretToken
	}
	if token := appData["x-secret-token"]; token != "" {
		return token
	}
	return defaultSecretToken
}

// fragmentHeaders is the header set that identifies a request as a
// partial-content fragment load.
func fragmentHeaders(referer, token string) map[string]string {
	return map[string]string{
		"Referer":          referer,
		"Accept":           "text/html,*/*;q=0.9",
		"HX-Request":       "true",
		"X-Requested-With": "XMLHttpRequest",
		"x-secret-token":   token,
	}
}
