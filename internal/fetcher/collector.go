package fetcher

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ryosukesatoh/paint-news/internal/article"
	"github.com/ryosukesatoh/paint-news/internal/config"
	"github.com/ryosukesatoh/paint-news/internal/dedup"
	"github.com/ryosukesatoh/paint-news/internal/logger"
	"github.com/ryosukesatoh/paint-news/internal/metrics"
)

const dateLayout = "2006-01-02"

// Options control one collection run.
type Options struct {
	KeywordGroups       []string
	PageSize            int
	MaxArticles         int
	DaysBack            int
	ExcludeDomains      []string
	Concurrency         int
	SimilarityThreshold float64
	// Now defaults to time.Now.
	Now func() time.Time
}

// OptionsFromConfig maps the newsapi config section onto collector options.
func OptionsFromConfig(cfg config.NewsAPIConfig) Options {
	return Options{
		KeywordGroups:       cfg.KeywordGroups,
		PageSize:            cfg.ArticlesPerQuery,
		MaxArticles:         cfg.MaxArticles,
		DaysBack:            cfg.DaysBack,
		ExcludeDomains:      cfg.ExcludedDomains,
		Concurrency:         cfg.Concurrency,
		SimilarityThreshold: cfg.SimilarityThreshold,
	}
}

// Stats counts what happened to the records of one run.
type Stats struct {
	Queries       int
	FailedQueries int
	Fetched       int
	Accepted      int
	Rejected      int
	Duplicates    int
	Returned      int
}

// Result is the outcome of Collect.
type Result struct {
	Articles []*article.Article
	Stats    Stats
}

// Collector runs every keyword group against a Provider and merges the results
// into one deduplicated, newest-first list.
type Collector struct {
	provider Provider
	opts     Options
	dedup    *dedup.Deduplicator
	log      logger.Logger
	metrics  *metrics.Metrics
}

// New builds a Collector backed by NewsAPI. It fails with ErrMissingAPIKey
// before any request can be made when no key is configured.
func New(cfg *config.Config, log logger.Logger, m *metrics.Metrics) (*Collector, error) {
	client, err := NewNewsAPIClient(cfg.NewsAPI.APIKey, cfg.NewsAPI.BaseURL, cfg.NewsAPI.Timeout)
	if err != nil {
		return nil, err
	}
	return NewCollector(client, OptionsFromConfig(cfg.NewsAPI), log, m), nil
}

func NewCollector(p Provider, opts Options, log logger.Logger, m *metrics.Metrics) *Collector {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Collector{
		provider: p,
		opts:     opts,
		dedup:    dedup.New(opts.SimilarityThreshold, log),
		log:      log,
		metrics:  m,
	}
}

type groupResult struct {
	articles []*article.Article
	fetched  int
	rejected int
	failed   bool
}

// Collect queries each keyword group, filters and parses the records, removes
// duplicates, sorts by publication time (newest first, undated last) and keeps
// at most MaxArticles. Failed queries are logged and contribute nothing. A
// cancelled context aborts the run and discards partial results.
func (c *Collector) Collect(ctx context.Context) (*Result, error) {
	now := c.opts.Now().UTC()
	req := SearchRequest{
		From:           now.AddDate(0, 0, -c.opts.DaysBack).Format(dateLayout),
		To:             now.Format(dateLayout),
		PageSize:       c.opts.PageSize,
		ExcludeDomains: c.opts.ExcludeDomains,
	}

	results := make([]groupResult, len(c.opts.KeywordGroups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, query := range c.opts.KeywordGroups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := req
			r.Query = query
			results[i] = c.collectGroup(gctx, r)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetcher: collection aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetcher: collection aborted: %w", err)
	}

	stats := Stats{Queries: len(results)}
	var merged []*article.Article
	for _, r := range results {
		if r.failed {
			stats.FailedQueries++
		}
		stats.Fetched += r.fetched
		stats.Rejected += r.rejected
		merged = append(merged, r.articles...)
	}
	stats.Accepted = len(merged)

	unique, ds := c.dedup.Dedup(merged)
	stats.Duplicates = ds.Dropped()

	sortNewestFirst(unique)
	if c.opts.MaxArticles > 0 && len(unique) > c.opts.MaxArticles {
		unique = unique[:c.opts.MaxArticles]
	}
	stats.Returned = len(unique)

	c.metrics.Articles(metrics.StageFetched, stats.Fetched)
	c.metrics.Articles(metrics.StageAccepted, stats.Accepted)
	c.metrics.Articles(metrics.StageRejected, stats.Rejected)
	c.metrics.Articles(metrics.StageDuplicate, stats.Duplicates)
	c.metrics.Articles(metrics.StageReturned, stats.Returned)

	c.log.Info("Collection finished",
		logger.Int("queries", stats.Queries),
		logger.Int("failed_queries", stats.FailedQueries),
		logger.Int("fetched", stats.Fetched),
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("returned", stats.Returned),
	)

	return &Result{Articles: unique, Stats: stats}, nil
}

func (c *Collector) collectGroup(ctx context.Context, req SearchRequest) groupResult {
	c.log.Info("Searching news",
		logger.String("query", req.Query),
		logger.String("from", req.From),
		logger.String("to", req.To),
	)

	raws, err := c.provider.Search(ctx, req)
	if err != nil {
		if ctx.Err() == nil {
			c.metrics.Query(false)
			c.log.Error("Search failed",
				logger.String("query", req.Query),
				logger.Error(err),
			)
		}
		return groupResult{failed: true}
	}
	c.metrics.Query(true)

	res := groupResult{fetched: len(raws)}
	for _, raw := range raws {
		a, err := article.Parse(raw)
		if err != nil {
			res.rejected++
			var rej *article.RejectionError
			if errors.As(err, &rej) {
				c.log.Debug("Rejected record",
					logger.String("reason", string(rej.Reason)),
					logger.String("title", rej.Title),
					logger.String("url", rej.URL),
				)
			}
			continue
		}
		res.articles = append(res.articles, a)
	}

	c.log.Info("Search returned",
		logger.String("query", truncateQuery(req.Query)),
		logger.Int("fetched", res.fetched),
		logger.Int("accepted", len(res.articles)),
	)
	return res
}

// sortNewestFirst is stable, so articles with equal (or equally missing)
// timestamps keep their merged order.
func sortNewestFirst(articles []*article.Article) {
	times := make(map[*article.Article]time.Time, len(articles))
	for _, a := range articles {
		times[a] = a.PublishedTime()
	}
	slices.SortStableFunc(articles, func(a, b *article.Article) int {
		return times[b].Compare(times[a])
	})
}

func truncateQuery(q string) string {
	r := []rune(q)
	if len(r) <= 50 {
		return q
	}
	return string(r[:50])
}
