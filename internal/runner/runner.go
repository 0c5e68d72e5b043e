// Package runner wires one batch together: collect, translate, render and
// notify.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ryosukesatoh/paint-news/internal/article"
	"github.com/ryosukesatoh/paint-news/internal/config"
	"github.com/ryosukesatoh/paint-news/internal/fetcher"
	"github.com/ryosukesatoh/paint-news/internal/logger"
	"github.com/ryosukesatoh/paint-news/internal/metrics"
	"github.com/ryosukesatoh/paint-news/internal/publisher"
	"github.com/ryosukesatoh/paint-news/internal/report"
	"github.com/ryosukesatoh/paint-news/internal/summarizer"
)

// Collector produces the article list of a run.
type Collector interface {
	Collect(ctx context.Context) (*fetcher.Result, error)
}

// Renderer writes the report outputs.
type Renderer interface {
	Render(articles []*article.Article, now time.Time) (*report.Report, error)
	SaveJSON(articles []*article.Article, now time.Time) (string, error)
}

// Options controls which steps of a run execute.
type Options struct {
	// DryRun uses SampleArticles and never calls a remote API.
	DryRun bool
	// NoNotify skips the publishers.
	NoNotify bool
	// SaveJSON writes the article dump next to the report.
	SaveJSON bool
	// PagesBaseURL is where the output directory is published.
	PagesBaseURL string
	// MetricsTextfile, when set, receives the run metrics.
	MetricsTextfile string
}

// Outcome describes a finished run.
type Outcome struct {
	RunID    string
	Articles []*article.Article
	Report   *report.Report
	JSONPath string
	Notified []string
}

// Runner orchestrates the collect -> translate -> render -> notify pipeline.
type Runner struct {
	collector  Collector
	summarizer summarizer.Summarizer
	renderer   Renderer
	publishers []publisher.Publisher
	pubErr     error
	opts       Options
	log        logger.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

func New(c Collector, s summarizer.Summarizer, r Renderer, pubs []publisher.Publisher, opts Options, log logger.Logger, m *metrics.Metrics) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{
		collector:  c,
		summarizer: s,
		renderer:   r,
		publishers: pubs,
		opts:       opts,
		log:        log,
		metrics:    m,
		now:        time.Now,
	}
}

// FromConfig builds a Runner with the NewsAPI collector, the configured
// summarizer and publishers. A dry run needs no credentials. Publishers that
// cannot be built are reported when the notify step runs.
func FromConfig(cfg *config.Config, opts Options, log logger.Logger, m *metrics.Metrics) (*Runner, error) {
	opts.SaveJSON = opts.SaveJSON && cfg.Report.JSONEnabled()
	if opts.PagesBaseURL == "" {
		opts.PagesBaseURL = cfg.Report.PagesBaseURL
	}
	if opts.MetricsTextfile == "" {
		opts.MetricsTextfile = cfg.Metrics.Textfile
	}

	var (
		c   Collector
		s   summarizer.Summarizer
		err error
	)
	if !opts.DryRun {
		if c, err = fetcher.New(cfg, log, m); err != nil {
			return nil, err
		}
		if s, err = summarizer.New(cfg, log, m); err != nil {
			return nil, err
		}
	}

	var (
		pubs   []publisher.Publisher
		pubErr error
	)
	if !opts.DryRun && !opts.NoNotify {
		pubs, pubErr = publisher.NewAll(cfg, log)
	}

	r := New(c, s, report.NewRenderer(cfg.Report.OutputDir, log), pubs, opts, log, m)
	r.pubErr = pubErr
	return r, nil
}

// Run executes the full pipeline once. Collection and report errors fail the
// run; notification errors are only logged.
func (r *Runner) Run(ctx context.Context) (*Outcome, error) {
	out := &Outcome{RunID: uuid.NewString()}
	log := r.log.With(logger.String("run_id", out.RunID))
	start := r.now()
	defer r.finish(log, start)

	log.Info("Starting pipeline",
		logger.Bool("dry_run", r.opts.DryRun),
		logger.String("started_jst", start.In(report.JST).Format("2006-01-02 15:04:05")),
	)

	// Step 1: collect
	if r.opts.DryRun {
		log.Info("Dry run: using sample articles")
		out.Articles = SampleArticles()
	} else {
		res, err := r.collector.Collect(ctx)
		if err != nil {
			return nil, fmt.Errorf("runner: collect failed: %w", err)
		}
		out.Articles = res.Articles
	}
	if len(out.Articles) == 0 {
		log.Warn("No articles found, nothing to report")
		return out, nil
	}
	log.Info("Collected articles", logger.Int("count", len(out.Articles)))

	// Step 2: translate
	if r.opts.DryRun {
		log.Info("Dry run: sample articles are already translated")
	} else if err := r.summarizer.Summarize(ctx, out.Articles); err != nil {
		return nil, fmt.Errorf("runner: summarize failed: %w", err)
	}

	// Step 3: render
	rep, err := r.renderer.Render(out.Articles, start)
	if err != nil {
		return nil, fmt.Errorf("runner: render failed: %w", err)
	}
	out.Report = rep
	if r.opts.SaveJSON {
		path, err := r.renderer.SaveJSON(out.Articles, start)
		if err != nil {
			return nil, fmt.Errorf("runner: save articles failed: %w", err)
		}
		out.JSONPath = path
	}

	// Step 4: notify
	switch {
	case r.opts.NoNotify:
		log.Info("Notifications skipped")
	case r.opts.DryRun:
		log.Info("Dry run: notifications skipped")
	default:
		out.Notified = r.notify(ctx, log, out.Articles, rep)
	}

	log.Info("Pipeline completed",
		logger.String("report", rep.Path),
		logger.Strings("notified", out.Notified),
	)
	return out, nil
}

func (r *Runner) notify(ctx context.Context, log logger.Logger, articles []*article.Article, rep *report.Report) []string {
	if r.pubErr != nil {
		log.Error("Some publishers could not be configured", logger.Error(r.pubErr))
	}
	if len(r.publishers) == 0 {
		log.Warn("No publishers available, skipping notifications")
		return nil
	}

	n := &publisher.Notification{
		Articles:  articles,
		ReportURL: rep.URL(r.opts.PagesBaseURL),
		IndexURL:  r.opts.PagesBaseURL,
		IssueDate: rep.IssueDate,
	}

	var notified []string
	for _, pub := range r.publishers {
		err := pub.Publish(ctx, n)
		r.metrics.Notification(pub.Name(), err == nil)
		if err != nil {
			log.Error("Notification failed", logger.String("publisher", pub.Name()), logger.Error(err))
			continue
		}
		log.Info("Notification sent", logger.String("publisher", pub.Name()))
		notified = append(notified, pub.Name())
	}
	return notified
}

func (r *Runner) finish(log logger.Logger, start time.Time) {
	end := r.now()
	r.metrics.RunFinished(end, end.Sub(start))
	if r.opts.MetricsTextfile == "" || r.metrics == nil {
		return
	}
	if err := r.metrics.WriteTextfile(r.opts.MetricsTextfile); err != nil {
		log.Warn("Failed to write metrics", logger.Error(err))
	}
}
