package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brandreport/harvester/config"
	"github.com/brandreport/harvester/crawler"
	"github.com/brandreport/harvester/models"
	"github.com/brandreport/harvester/pipeline"
	"github.com/brandreport/harvester/transport"
)

func main() {
	defaultCfg := config.DefaultConfig()

	outdirDefault := defaultCfg.OutDir
	if value, ok := config.EnvString("HARVESTER_OUTDIR"); ok {
		outdirDefault = value
	}
	baseURLDefault := defaultCfg.BaseURL
	if value, ok := config.EnvString("HARVESTER_BASE_URL"); ok {
		baseURLDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("HARVESTER_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	reviewsFirstDefault := defaultCfg.ReviewsPageSize
	if value, ok, err := config.EnvInt("HARVESTER_REVIEWS_FIRST"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid HARVESTER_REVIEWS_FIRST: %v\n", err)
		os.Exit(1)
	} else if ok {
		reviewsFirstDefault = value
	}

	outDir := flag.String("outdir", outdirDefault, "Output directory for the JSON datasets")
	delaySec := flag.Float64("delay", 0, "Delay between consecutive requests within a crawler (seconds)")
	perCategory := flag.Bool("per-category", false, "Also crawl each product category filter")
	reviewsFirst := flag.Int("reviews-first", reviewsFirstDefault, "GraphQL page size for reviews")
	reviewsMaxPages := flag.Int("reviews-max-pages", defaultCfg.ReviewsMaxPages, "Max GraphQL pages for reviews")
	testimonialsMaxPages := flag.Int("testimonials-max-pages", defaultCfg.TestimonialsMaxPages, "Max fragment pages for testimonials")
	baseURL := flag.String("base-url", baseURLDefault, "Target site base URL")
	timeoutSec := flag.Int("timeout", int(defaultCfg.Timeout/time.Second), "HTTP request timeout (seconds)")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.BaseURL = *baseURL
	cfg.OutDir = *outDir
	cfg.Delay = time.Duration(*delaySec * float64(time.Second))
	cfg.Timeout = time.Duration(*timeoutSec) * time.Second
	cfg.PerCategory = *perCategory
	cfg.ReviewsPageSize = *reviewsFirst
	cfg.ReviewsMaxPages = *reviewsMaxPages
	cfg.TestimonialsMaxPages = *testimonialsMaxPages
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	writer, err := pipeline.NewDatasetWriter(cfg.OutDir)
	if err != nil {
		slog.Error("preparing output directory", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := crawler.NewMetrics()
	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	slog.Info("starting harvest",
		slog.String("base_url", cfg.BaseURL),
		slog.String("outdir", cfg.OutDir),
		slog.Bool("per_category", cfg.PerCategory),
	)

	start := time.Now()

	// The three crawlers share nothing mutable: each owns its own client and
	// seen-set, so they run concurrently while staying sequential inside.
	jobs := []crawlJob{
		productsJob(cfg, metrics),
		reviewsJob(cfg, metrics),
		testimonialsJob(cfg, metrics),
	}
	results := make([]models.CrawlResult, len(jobs))
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job crawlJob) {
			defer wg.Done()
			results[i] = runJob(ctx, job, writer)
		}(i, job)
	}
	wg.Wait()

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(results, time.Since(start), cfg.OutDir)

	for _, result := range results {
		if result.Err != nil {
			os.Exit(1)
		}
	}
}

// crawlOutcome is what one crawler run produced, before persistence.
type crawlOutcome struct {
	records    any
	count      int
	pages      int
	duplicates int
}

// crawlJob pairs a dataset source with the function that crawls it.
type crawlJob struct {
	source string
	run    func(ctx context.Context) (crawlOutcome, error)
}

// runJob executes one crawl and persists its dataset. Persistence happens
// only after the crawl succeeds, so a failed run never touches the file on
// disk and the other crawlers' datasets are unaffected.
func runJob(ctx context.Context, job crawlJob, writer *pipeline.DatasetWriter) models.CrawlResult {
	result := models.CrawlResult{Source: job.source, StartTime: time.Now()}

	out, err := job.run(ctx)
	result.PagesFetched = out.pages
	result.Duplicates = out.duplicates
	if err != nil {
		return finish(result, 0, err)
	}
	if err := persist(writer, job.source, out.records); err != nil {
		return finish(result, 0, err)
	}
	return finish(result, out.count, nil)
}

func productsJob(cfg *config.Config, metrics *crawler.Metrics) crawlJob {
	return crawlJob{source: crawler.SourceProducts, run: func(ctx context.Context) (crawlOutcome, error) {
		c, err := crawler.NewProductCrawler(cfg, metrics)
		if err != nil {
			return crawlOutcome{}, err
		}
		products, err := c.Run(ctx)
		out := crawlOutcome{
			records:    products,
			count:      len(products),
			pages:      c.PagesFetched(),
			duplicates: c.Duplicates(),
		}
		return out, err
	}}
}

func reviewsJob(cfg *config.Config, metrics *crawler.Metrics) crawlJob {
	return crawlJob{source: crawler.SourceReviews, run: func(ctx context.Context) (crawlOutcome, error) {
		c := crawler.NewReviewCrawler(cfg, transport.New(cfg), metrics)
		reviews, err := c.Run(ctx)
		out := crawlOutcome{
			records: reviews,
			count:   len(reviews),
			pages:   c.PagesFetched(),
		}
		return out, err
	}}
}

func testimonialsJob(cfg *config.Config, metrics *crawler.Metrics) crawlJob {
	return crawlJob{source: crawler.SourceTestimonials, run: func(ctx context.Context) (crawlOutcome, error) {
		c, err := crawler.NewTestimonialCrawler(cfg, transport.New(cfg), metrics)
		if err != nil {
			return crawlOutcome{}, err
		}
		testimonials, err := c.Run(ctx)
		out := crawlOutcome{
			records:    testimonials,
			count:      len(testimonials),
			pages:      c.PagesFetched(),
			duplicates: c.Duplicates(),
		}
		return out, err
	}}
}

// persist writes a dataset and confirms it landed. It is called only after a
// crawler succeeds, so a failed crawl never leaves a partial file behind.
func persist(writer *pipeline.DatasetWriter, name string, records any) error {
	if err := writer.Write(name, records); err != nil {
		return err
	}
	if err := writer.Validate(name); err != nil {
		return err
	}
	slog.Info("dataset written",
		slog.String("source", name),
		slog.String("path", writer.Path(name)),
	)
	return nil
}

func finish(result models.CrawlResult, records int, err error) models.CrawlResult {
	result.Records = records
	result.Err = err
	result.EndTime = time.Now()
	if err != nil {
		slog.Error("crawl failed",
			slog.String("source", result.Source),
			slog.Any("error", err),
		)
	}
	return result
}

func printSummary(results []models.CrawlResult, duration time.Duration, outDir string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Harvest complete")

	failed := 0
	for _, result := range results {
		status := "ok"
		if result.Err != nil {
			status = fmt.Sprintf("FAILED (%v)", result.Err)
			failed++
		}
		fmt.Printf("  %-13s %5d records, %3d pages, %3d duplicates dropped, %8s  %s\n",
			result.Source+":", result.Records, result.PagesFetched, result.Duplicates,
			result.Duration().Round(time.Millisecond), status)
	}

	fmt.Printf("  Duration:      %v\n", duration.Round(time.Millisecond))
	fmt.Printf("  Output dir:    %s\n", outDir)
	if failed > 0 {
		fmt.Printf("  Failures:      %d of %d crawlers\n", failed, len(results))
	}
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
