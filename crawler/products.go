package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/brandreport/harvester/config"
	"github.com/brandreport/harvester/markup"
	"github.com/brandreport/harvester/models"
	"github.com/brandreport/harvester/parser"
	"github.com/brandreport/harvester/transport"
)

// categorySlugs mirrors the category filters shown on the listing page.
var categorySlugs = []string{"apparel", "consumables", "household"}

var productShape = markup.Shape{
	"name":              {Selector: "h3 a", Rule: markup.Text},
	"url":               {Selector: "h3 a", Rule: markup.Attr, AttrName: "href", ResolveURL: true},
	"price":             {Selector: "div.price", Rule: markup.Text},
	"short_description": {Selector: "div.short-description", Rule: markup.Text},
	"image":             {Selector: "div.thumbnail img", Rule: markup.Attr, AttrName: "src", ResolveURL: true},
}

// ProductCrawler drives the paginated HTML listings. It walks each start URL
// from page 1 to the discovered total, merging items into one result
// deduplicated by product URL.
type ProductCrawler struct {
	cfg       *config.Config
	base      *url.URL
	collector *colly.Collector
	seen      *SeenSet
	metrics   *Metrics

	// The collector runs synchronously, so handler state needs no locking.
	products   []models.Product
	totalPages int
	pages      int
	duplicates int
	referer    string
	fetchErr   error
}

// NewProductCrawler builds a product crawler configured from cfg.
func NewProductCrawler(cfg *config.Config, metrics *Metrics) (*ProductCrawler, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(base.Host),
		colly.UserAgent(cfg.UserAgent),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(transport.NewRoundTripper(cfg.Timeout))

	if cfg.Delay > 0 {
		if err := collector.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: 1,
			Delay:       cfg.Delay,
		}); err != nil {
			return nil, fmt.Errorf("configure rate limits: %w", err)
		}
	}

	seen, err := NewSeenSet(cfg.SeenCapacity)
	if err != nil {
		return nil, fmt.Errorf("build seen set: %w", err)
	}

	c := &ProductCrawler{
		cfg:       cfg,
		base:      base,
		collector: collector,
		seen:      seen,
		metrics:   metrics,
	}
	c.registerHandlers()
	return c, nil
}

func (c *ProductCrawler) registerHandlers() {
	c.collector.OnRequest(func(r *colly.Request) {
		if c.referer != "" {
			r.Headers.Set("Referer", c.referer)
		}
		r.Ctx.Put("start", time.Now())
		c.metrics.IncRequest(SourceProducts)
	})

	c.collector.OnResponse(func(r *colly.Response) {
		c.pages++
		if start, ok := r.Ctx.GetAny("start").(time.Time); ok {
			c.metrics.ObserveDuration(time.Since(start))
		}
	})

	c.collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			c.fetchErr = &transport.StatusError{URL: r.Request.URL.String(), Status: r.StatusCode}
		} else {
			requestURL := ""
			if r != nil && r.Request != nil && r.Request.URL != nil {
				requestURL = r.Request.URL.String()
			}
			c.fetchErr = &transport.RequestError{URL: requestURL, Err: err}
		}
		c.metrics.IncError(SourceProducts, errorTypeLabel(c.fetchErr))
	})

	c.collector.OnHTML("div.paging-meta", func(e *colly.HTMLElement) {
		c.totalPages = totalPagesFrom(e.Text)
	})

	c.collector.OnHTML("div.row.product", func(e *colly.HTMLElement) {
		fields := markup.ExtractOne(e.DOM, productShape, c.base)
		product := parser.ProductFromFields(fields)

		// Items without a URL can never be identified, so they are always
		// kept; first-seen wins for everything else.
		if product.URL != "" && c.seen.Seen(product.URL) {
			c.duplicates++
			c.metrics.IncDuplicate(SourceProducts)
			return
		}
		c.products = append(c.products, product)
		c.metrics.AddRecords(SourceProducts, 1)
	})
}

// Run walks every configured start URL to completion and returns the merged,
// deduplicated products in discovery order.
func (c *ProductCrawler) Run(ctx context.Context) ([]models.Product, error) {
	for _, start := range c.startURLs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.crawlListing(ctx, start); err != nil {
			return nil, err
		}
	}
	if c.products == nil {
		c.products = []models.Product{}
	}
	return c.products, nil
}

// PagesFetched reports how many listing pages were retrieved.
func (c *ProductCrawler) PagesFetched() int { return c.pages }

// Duplicates reports how many items the seen-set dropped.
func (c *ProductCrawler) Duplicates() int { return c.duplicates }

func (c *ProductCrawler) startURLs() []string {
	starts := []string{c.cfg.BaseURL + "/products"}
	if c.cfg.PerCategory {
		for _, slug := range categorySlugs {
			starts = append(starts, c.cfg.BaseURL+"/products?category="+slug)
		}
	}
	return starts
}

func (c *ProductCrawler) crawlListing(ctx context.Context, start string) error {
	// Page 1 doubles as the source of the total page count; its document is
	// parsed once, not refetched.
	c.totalPages = 1
	c.referer = c.cfg.BaseURL
	if err := c.visit(start); err != nil {
		return err
	}

	total := c.totalPages
	slog.Debug("listing pages discovered",
		slog.String("start", start),
		slog.Int("total", total),
	)

	c.referer = start
	for page := 2; page <= total; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.visit(pageURL(start, page)); err != nil {
			return err
		}
	}
	return nil
}

func (c *ProductCrawler) visit(target string) error {
	c.fetchErr = nil
	err := c.collector.Visit(target)
	c.collector.Wait()
	// OnError classifies fetch failures; prefer its typed error over the
	// raw one Visit echoes back.
	if c.fetchErr != nil {
		return c.fetchErr
	}
	if err != nil {
		return &transport.RequestError{URL: target, Err: err}
	}
	return nil
}

func pageURL(start string, page int) string {
	joiner := "?"
	if strings.Contains(start, "?") {
		joiner = "&"
	}
	return start + joiner + "page=" + strconv.Itoa(page)
}

var totalPagesRe = regexp.MustCompile(`(?i)in\s+(\d+)\s+pages`)

// totalPagesFrom reads the page count out of the paging-summary sentence
// ("page 1 of total 28 results in 6 pages"). The wording is fragile upstream,
// so an unrecognised summary fails closed to a single page.
func totalPagesFrom(text string) int {
	match := totalPagesRe.FindStringSubmatch(text)
	if match == nil {
		return 1
	}
	total, err := strconv.Atoi(match[1])
	if err != nil || total < 1 {
		return 1
	}
	return total
}
