package crawler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/brandreport/harvester/config"
	"github.com/brandreport/harvester/models"
	"github.com/brandreport/harvester/transport"
)

const reviewsQuery = `query GetReviews($first: Int, $after: String) {
  reviews(first: $first, after: $after) {
    edges {
      node {
        rid
        text
        rating
        date
      }
      cursor
    }
    pageInfo {
      endCursor
      hasNextPage
    }
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlResponse struct {
	Data struct {
		Reviews struct {
			Edges []struct {
				Node models.Review `json:"node"`
			} `json:"edges"`
			PageInfo struct {
				EndCursor   *string `json:"endCursor"`
				HasNextPage bool    `json:"hasNextPage"`
			} `json:"pageInfo"`
		} `json:"reviews"`
	} `json:"data"`
	Errors []json.RawMessage `json:"errors"`
}

// ReviewCrawler drives the cursor-paginated GraphQL reviews connection:
// query with after=null, then follow endCursor while hasNextPage holds, up
// to the max-pages circuit breaker. Cursors are assumed exhaustive and
// non-overlapping, so nodes are appended in server order without local
// dedup or sorting.
type ReviewCrawler struct {
	cfg     *config.Config
	client  *transport.Client
	metrics *Metrics

	pages int
}

// NewReviewCrawler builds a review crawler on its own transport client.
func NewReviewCrawler(cfg *config.Config, client *transport.Client, metrics *Metrics) *ReviewCrawler {
	return &ReviewCrawler{cfg: cfg, client: client, metrics: metrics}
}

// Run consumes the connection to exhaustion and returns nodes in server
// order. A populated errors array is fatal: it signals a malformed query or
// a changed schema, not a transient fault, and is never retried.
func (c *ReviewCrawler) Run(ctx context.Context) ([]models.Review, error) {
	endpoint := c.cfg.BaseURL + "/api/graphql"
	headers := map[string]string{"Referer": c.cfg.BaseURL + "/reviews"}

	reviews := []models.Review{}
	var after *string

	for page := 1; page <= c.cfg.ReviewsMaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if page > 1 {
			throttle(ctx, c.cfg.Delay)
		}

		payload := graphqlRequest{
			Query: reviewsQuery,
			Variables: map[string]any{
				"first": c.cfg.ReviewsPageSize,
				"after": after,
			},
		}

		var resp graphqlResponse
		c.metrics.IncRequest(SourceReviews)
		start := time.Now()
		if err := c.client.PostJSON(ctx, endpoint, payload, headers, &resp); err != nil {
			c.metrics.IncError(SourceReviews, errorTypeLabel(err))
			return nil, err
		}
		c.metrics.ObserveDuration(time.Since(start))
		c.pages++

		if len(resp.Errors) > 0 {
			raw, _ := json.Marshal(resp.Errors)
			err := &ContractError{
				URL:     endpoint,
				Detail:  "graphql errors returned",
				Payload: string(raw),
			}
			c.metrics.IncError(SourceReviews, errorTypeLabel(err))
			return nil, err
		}

		edges := resp.Data.Reviews.Edges
		for _, edge := range edges {
			reviews = append(reviews, edge.Node)
		}
		c.metrics.AddRecords(SourceReviews, len(edges))

		info := resp.Data.Reviews.PageInfo
		slog.Debug("reviews page consumed",
			slog.Int("page", page),
			slog.Int("nodes", len(edges)),
			slog.Bool("has_next", info.HasNextPage),
		)
		if !info.HasNextPage {
			return reviews, nil
		}
		after = info.EndCursor
	}

	slog.Warn("reviews pagination stopped by page cap",
		slog.Int("max_pages", c.cfg.ReviewsMaxPages),
	)
	return reviews, nil
}

// PagesFetched reports how many GraphQL pages were consumed.
func (c *ReviewCrawler) PagesFetched() int { return c.pages }
