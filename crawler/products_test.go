package crawler

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/brandreport/harvester/config"
	"github.com/brandreport/harvester/models"
	"github.com/brandreport/harvester/transport"
)

const productPage1 = `
<html><body>
<div class="paging-meta">page 1 of total 28 results in 3 pages</div>
<div class="row product">
  <h3><a href="/product/1">Box of Chocolate Candy</a></h3>
  <div class="price">9.99</div>
  <div class="short-description">Sweet and rich</div>
  <div class="thumbnail"><img src="/assets/products/1.png"></div>
</div>
<div class="row product">
  <h3><a href="/product/2">Household Cleaner</a></h3>
  <div class="price">4.50</div>
  <div class="short-description">Cleans everything</div>
  <div class="thumbnail"><img src="/assets/products/2.png"></div>
</div>
</body></html>`

const productPage2 = `
<html><body>
<div class="paging-meta">page 2 of total 28 results in 3 pages</div>
<div class="row product">
  <h3><a href="/product/2">Household Cleaner REPRICED</a></h3>
  <div class="price">99.99</div>
</div>
<div class="row product">
  <h3><a href="/product/3">Cat-Ear Beanie</a></h3>
  <div class="price">14.99</div>
  <div class="thumbnail"><img src="/assets/products/3.png"></div>
</div>
</body></html>`

const productPage3 = `
<html><body>
<div class="paging-meta">page 3 of total 28 results in 3 pages</div>
<div class="row product">
  <h3><a href="/product/4">Mystery Item</a></h3>
  <div class="short-description">No price listed</div>
</div>
<div class="row product">
  <h3>Item With No Link</h3>
  <div class="price">1.00</div>
</div>
</body></html>`

const productPageNoMeta = `
<html><body>
<div class="row product">
  <h3><a href="/product/9">Lone Product</a></h3>
  <div class="price">2.00</div>
</div>
</body></html>`

func newProductCrawlerForTest(t *testing.T, cfg *config.Config) (*ProductCrawler, *httpmock.MockTransport) {
	t.Helper()
	c, err := NewProductCrawler(cfg, NewMetrics())
	if err != nil {
		t.Fatalf("new product crawler: %v", err)
	}
	mock := httpmock.NewMockTransport()
	c.collector.WithTransport(mock)
	return c, mock
}

// htmlResponder serves a fixture page with the HTML content type the live
// site sends; the collector only parses responses it recognizes as HTML.
func htmlResponder(body string) httpmock.Responder {
	return func(*http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(http.StatusOK, body)
		resp.Header.Set("Content-Type", "text/html; charset=utf-8")
		return resp, nil
	}
}

func productTestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = "http://example.test"
	return cfg
}

func TestProductCrawlerWalksDiscoveredPages(t *testing.T) {
	cfg := productTestConfig()
	c, mock := newProductCrawlerForTest(t, cfg)

	mock.RegisterResponder("GET", "http://example.test/products",
		htmlResponder(productPage1))
	mock.RegisterResponder("GET", "http://example.test/products?page=2",
		htmlResponder(productPage2))
	mock.RegisterResponder("GET", "http://example.test/products?page=3",
		htmlResponder(productPage3))

	products, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if c.PagesFetched() != 3 {
		t.Fatalf("fetched %d pages, want 3", c.PagesFetched())
	}

	// Page 1 items, then page 2's new item, then page 3's two items; the
	// page 2 duplicate of /product/2 is dropped with first-seen fields kept.
	if len(products) != 5 {
		t.Fatalf("got %d products, want 5: %+v", len(products), products)
	}
	if products[0].Name != "Box of Chocolate Candy" {
		t.Fatalf("first product = %q", products[0].Name)
	}
	if products[1].Name != "Household Cleaner" || *products[1].Price != 4.50 {
		t.Fatalf("duplicate must keep first-seen fields, got %+v", products[1])
	}
	if products[0].URL != "http://example.test/product/1" {
		t.Fatalf("product URL not absolute: %q", products[0].URL)
	}
	if products[0].Image != "http://example.test/assets/products/1.png" {
		t.Fatalf("image URL not absolute: %q", products[0].Image)
	}
	if c.Duplicates() != 1 {
		t.Fatalf("duplicates = %d, want 1", c.Duplicates())
	}
}

func TestProductCrawlerMissingPriceYieldsNull(t *testing.T) {
	cfg := productTestConfig()
	c, mock := newProductCrawlerForTest(t, cfg)

	mock.RegisterResponder("GET", "http://example.test/products",
		htmlResponder(productPage1))
	mock.RegisterResponder("GET", "http://example.test/products?page=2",
		htmlResponder(productPage2))
	mock.RegisterResponder("GET", "http://example.test/products?page=3",
		htmlResponder(productPage3))

	products, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var found bool
	for _, p := range products {
		if p.Name == "Mystery Item" {
			found = true
			if p.Price != nil {
				t.Fatalf("mystery item price = %v, want nil", *p.Price)
			}
		}
	}
	if !found {
		t.Fatalf("record with missing price node was dropped")
	}
}

func TestProductCrawlerKeepsItemsWithoutURL(t *testing.T) {
	cfg := productTestConfig()
	c, mock := newProductCrawlerForTest(t, cfg)

	mock.RegisterResponder("GET", "http://example.test/products",
		htmlResponder(productPage1))
	mock.RegisterResponder("GET", "http://example.test/products?page=2",
		htmlResponder(productPage2))
	mock.RegisterResponder("GET", "http://example.test/products?page=3",
		htmlResponder(productPage3))

	products, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var urlless int
	for _, p := range products {
		if p.URL == "" {
			urlless++
		}
	}
	if urlless != 1 {
		t.Fatalf("items without a URL must always be kept, found %d", urlless)
	}
}

func TestProductCrawlerMissingPagingSummaryStopsAfterOnePage(t *testing.T) {
	cfg := productTestConfig()
	c, mock := newProductCrawlerForTest(t, cfg)

	mock.RegisterResponder("GET", "http://example.test/products",
		htmlResponder(productPageNoMeta))

	products, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if c.PagesFetched() != 1 {
		t.Fatalf("fetched %d pages, want exactly 1", c.PagesFetched())
	}
	if len(products) != 1 || products[0].Name != "Lone Product" {
		t.Fatalf("unexpected products %+v", products)
	}
}

func TestProductCrawlerPerCategorySharesSeenSet(t *testing.T) {
	cfg := productTestConfig()
	cfg.PerCategory = true
	c, mock := newProductCrawlerForTest(t, cfg)

	mock.RegisterResponder("GET", "http://example.test/products",
		htmlResponder(productPageNoMeta))
	// Every category lists the same lone product.
	for _, slug := range categorySlugs {
		mock.RegisterResponder("GET", "http://example.test/products?category="+slug,
			htmlResponder(productPageNoMeta))
	}

	products, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("item listed in every category must be recorded once, got %d", len(products))
	}
	if c.Duplicates() != len(categorySlugs) {
		t.Fatalf("duplicates = %d, want %d", c.Duplicates(), len(categorySlugs))
	}
}

func TestProductCrawlerStatusFailureAborts(t *testing.T) {
	cfg := productTestConfig()
	c, mock := newProductCrawlerForTest(t, cfg)

	mock.RegisterResponder("GET", "http://example.test/products",
		httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))

	_, err := c.Run(context.Background())
	var statusErr *transport.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", statusErr.Status)
	}
}

func TestProductCrawlerIdempotentAcrossRuns(t *testing.T) {
	run := func() []models.Product {
		cfg := productTestConfig()
		c, mock := newProductCrawlerForTest(t, cfg)
		mock.RegisterResponder("GET", "http://example.test/products",
			htmlResponder(productPage1))
		mock.RegisterResponder("GET", "http://example.test/products?page=2",
			htmlResponder(productPage2))
		mock.RegisterResponder("GET", "http://example.test/products?page=3",
			htmlResponder(productPage3))

		products, err := c.Run(context.Background())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return products
	}

	first := run()
	second := run()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("two crawls of unchanged fixtures differ:\n%+v\n%+v", first, second)
	}
}

func TestTotalPagesFrom(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "normal summary", text: "page 1 of total 28 results in 6 pages", want: 6},
		{name: "case insensitive", text: "28 results IN 12 PAGES", want: 12},
		{name: "absent", text: "showing some results", want: 1},
		{name: "empty", text: "", want: 1},
		{name: "zero fails closed", text: "in 0 pages", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := totalPagesFrom(tt.text); got != tt.want {
				t.Fatalf("totalPagesFrom(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}
