package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ryosukesatoh/paint-news/internal/article"
	"github.com/ryosukesatoh/paint-news/internal/config"
	"github.com/ryosukesatoh/paint-news/internal/fetcher"
	"github.com/ryosukesatoh/paint-news/internal/logger"
	"github.com/ryosukesatoh/paint-news/internal/metrics"
	"github.com/ryosukesatoh/paint-news/internal/publisher"
	"github.com/ryosukesatoh/paint-news/internal/report"
	"github.com/ryosukesatoh/paint-news/internal/summarizer"
)

// Mock implementations

type mockCollector struct {
	articles []*article.Article
	err      error
	called   bool
}

func (m *mockCollector) Collect(ctx context.Context) (*fetcher.Result, error) {
	m.called = true
	if m.err != nil {
		return nil, m.err
	}
	return &fetcher.Result{Articles: m.articles}, nil
}

type mockSummarizer struct {
	err    error
	called bool
}

func (m *mockSummarizer) Summarize(ctx context.Context, articles []*article.Article) error {
	m.called = true
	if m.err != nil {
		return m.err
	}
	for _, a := range articles {
		a.TitleTranslated = "訳: " + a.Title
		a.SummaryTranslated = "要約"
		a.Category = article.CategoryMarket
	}
	return nil
}

type mockPublisher struct {
	name         string
	err          error
	notification *publisher.Notification
}

func (m *mockPublisher) Name() string { return m.name }

func (m *mockPublisher) Publish(ctx context.Context, n *publisher.Notification) error {
	m.notification = n
	return m.err
}

type failingRenderer struct{}

func (failingRenderer) Render([]*article.Article, time.Time) (*report.Report, error) {
	return nil, errors.New("disk full")
}

func (failingRenderer) SaveJSON([]*article.Article, time.Time) (string, error) {
	return "", nil
}

// 2025-01-15 20:30 UTC is 2025-01-16 in JST.
var fixedNow = time.Date(2025, 1, 15, 20, 30, 0, 0, time.UTC)

func sampleArticles() []*article.Article {
	return []*article.Article{
		{Title: "Paint booth news", URL: "https://example.com/1", Source: "Coatings World", PublishedAt: "2025-01-14T10:00:00Z"},
		{Title: "Coating market", URL: "https://example.com/2", Source: "PCI", PublishedAt: "2025-01-13T10:00:00Z"},
	}
}

func newRunner(t *testing.T, c Collector, s summarizer.Summarizer, pubs []publisher.Publisher, opts Options, m *metrics.Metrics) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	if opts.PagesBaseURL == "" {
		opts.PagesBaseURL = "https://acme.github.io/paint/"
	}
	r := New(c, s, report.NewRenderer(dir, nil), pubs, opts, logger.NewNop(), m)
	r.now = func() time.Time { return fixedNow }
	return r, dir
}

func TestRunSuccess(t *testing.T) {
	pub := &mockPublisher{name: "mock"}
	sum := &mockSummarizer{}
	m := metrics.New()
	textfile := filepath.Join(t.TempDir(), "paint_news.prom")

	r, dir := newRunner(t, &mockCollector{articles: sampleArticles()}, sum,
		[]publisher.Publisher{pub}, Options{SaveJSON: true, MetricsTextfile: textfile}, m)

	out, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if _, err := uuid.Parse(out.RunID); err != nil {
		t.Errorf("RunID %q is not a UUID: %v", out.RunID, err)
	}
	if !sum.called {
		t.Error("Expected summarizer to be called")
	}
	if len(out.Articles) != 2 || out.Articles[0].TitleTranslated != "訳: Paint booth news" {
		t.Errorf("Unexpected articles %v", out.Articles)
	}
	if out.Report == nil || out.Report.Path != filepath.Join(dir, "weekly-news-2025-01-16.html") {
		t.Fatalf("Unexpected report %+v", out.Report)
	}
	if _, err := os.Stat(out.Report.Path); err != nil {
		t.Errorf("Report not written: %v", err)
	}
	if out.JSONPath != filepath.Join(dir, "articles-2025-01-16.json") {
		t.Errorf("JSONPath = %q", out.JSONPath)
	}

	if pub.notification == nil {
		t.Fatal("Expected publisher to be called")
	}
	if got := pub.notification.ReportURL; got != "https://acme.github.io/paint/weekly-news-2025-01-16.html" {
		t.Errorf("ReportURL = %q", got)
	}
	if got := pub.notification.IndexURL; got != "https://acme.github.io/paint/" {
		t.Errorf("IndexURL = %q", got)
	}
	if got := pub.notification.IssueDate; got != "2025年01月16日" {
		t.Errorf("IssueDate = %q", got)
	}
	if len(out.Notified) != 1 || out.Notified[0] != "mock" {
		t.Errorf("Notified = %v", out.Notified)
	}

	if got := testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("mock", metrics.OutcomeSuccess)); got != 1 {
		t.Errorf("notification success counter = %v", got)
	}
	data, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatalf("Metrics textfile not written: %v", err)
	}
	if !strings.Contains(string(data), "paint_news_last_run_timestamp_seconds") {
		t.Errorf("Expected last run gauge in textfile, got:\n%s", data)
	}
}

func TestRunCollectError(t *testing.T) {
	sum := &mockSummarizer{}
	r, _ := newRunner(t, &mockCollector{err: errors.New("collect failed")}, sum, nil, Options{}, nil)

	_, err := r.Run(context.Background())
	if err == nil {
		t.Fatal("Expected error from collect failure")
	}
	if sum.called {
		t.Error("Summarizer must not run after a failed collection")
	}
}

func TestRunSummarizeError(t *testing.T) {
	r, dir := newRunner(t, &mockCollector{articles: sampleArticles()}, &mockSummarizer{err: context.Canceled}, nil, Options{}, nil)

	_, err := r.Run(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected wrapped context.Canceled, got %v", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("Expected no output files, got %d", len(entries))
	}
}

func TestRunNoArticlesShortCircuits(t *testing.T) {
	sum := &mockSummarizer{}
	pub := &mockPublisher{name: "mock"}
	r, dir := newRunner(t, &mockCollector{}, sum, []publisher.Publisher{pub}, Options{SaveJSON: true}, nil)

	out, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.Report != nil || len(out.Articles) != 0 {
		t.Errorf("Expected empty outcome, got %+v", out)
	}
	if sum.called || pub.notification != nil {
		t.Error("Expected later steps to be skipped")
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("Expected no output files, got %d", len(entries))
	}
}

func TestRunRenderError(t *testing.T) {
	pub := &mockPublisher{name: "mock"}
	r := New(&mockCollector{articles: sampleArticles()}, &mockSummarizer{}, failingRenderer{},
		[]publisher.Publisher{pub}, Options{}, nil, nil)

	_, err := r.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Expected render error, got %v", err)
	}
	if pub.notification != nil {
		t.Error("Publisher must not run without a report")
	}
}

func TestRunPublishFailureDoesNotFail(t *testing.T) {
	failPub := &mockPublisher{name: "sendgrid", err: errors.New("publish failed")}
	successPub := &mockPublisher{name: "discord"}
	m := metrics.New()

	r, _ := newRunner(t, &mockCollector{articles: sampleArticles()}, &mockSummarizer{},
		[]publisher.Publisher{failPub, successPub}, Options{}, m)

	out, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run should not fail when publisher fails, got: %v", err)
	}
	if failPub.notification == nil {
		t.Error("Expected failing publisher to be called")
	}
	if successPub.notification == nil {
		t.Error("Expected second publisher to be called even after first fails")
	}
	if len(out.Notified) != 1 || out.Notified[0] != "discord" {
		t.Errorf("Notified = %v", out.Notified)
	}
	if got := testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("sendgrid", metrics.OutcomeFailure)); got != 1 {
		t.Errorf("notification failure counter = %v", got)
	}
}

func TestRunNoNotify(t *testing.T) {
	pub := &mockPublisher{name: "mock"}
	r, _ := newRunner(t, &mockCollector{articles: sampleArticles()}, &mockSummarizer{},
		[]publisher.Publisher{pub}, Options{NoNotify: true}, nil)

	out, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if pub.notification != nil || len(out.Notified) != 0 {
		t.Error("Expected notifications to be skipped")
	}
	if out.JSONPath != "" {
		t.Errorf("Expected no JSON dump, got %q", out.JSONPath)
	}
}

func TestRunDryRun(t *testing.T) {
	pub := &mockPublisher{name: "mock"}
	r, dir := newRunner(t, nil, nil, []publisher.Publisher{pub}, Options{DryRun: true, SaveJSON: true}, nil)

	out, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(out.Articles) != 3 {
		t.Fatalf("Expected 3 sample articles, got %d", len(out.Articles))
	}
	if out.Articles[1].Category != article.CategoryMarket {
		t.Errorf("Unexpected sample category %q", out.Articles[1].Category)
	}
	if pub.notification != nil {
		t.Error("Dry run must not notify")
	}
	if _, err := os.Stat(filepath.Join(dir, "index.html")); err != nil {
		t.Errorf("Expected index to be written: %v", err)
	}
	if _, err := os.Stat(out.JSONPath); err != nil {
		t.Errorf("Expected JSON dump: %v", err)
	}
}

func TestSampleArticlesArePreTranslated(t *testing.T) {
	for _, a := range SampleArticles() {
		if a.TitleTranslated == "" || a.SummaryTranslated == "" || !a.Category.Valid() {
			t.Errorf("Sample %q is not fully translated", a.Title)
		}
		if !article.Accept(article.Raw{Title: a.Title, URL: a.URL, Description: a.Description}) {
			t.Errorf("Sample %q would be rejected by the quality filter", a.Title)
		}
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		NewsAPI: config.NewsAPIConfig{
			APIKey:              "news-key",
			KeywordGroups:       []string{"paint"},
			ArticlesPerQuery:    10,
			MaxArticles:         20,
			DaysBack:            7,
			Timeout:             time.Second,
			Concurrency:         1,
			SimilarityThreshold: 0.75,
		},
		Summarizer: config.SummarizerConfig{Type: "anthropic", APIKey: "llm-key"},
		Report:     config.ReportConfig{OutputDir: t.TempDir(), PagesBaseURL: "https://acme.github.io/paint/"},
		Publisher:  config.PublisherConfig{Types: []string{"sendgrid", "stdout"}},
		Metrics:    config.MetricsConfig{Textfile: "/tmp/paint.prom"},
	}
}

func TestFromConfig(t *testing.T) {
	r, err := FromConfig(testConfig(t), Options{SaveJSON: true}, nil, nil)
	if err != nil {
		t.Fatalf("FromConfig returned error: %v", err)
	}
	if r.collector == nil || r.summarizer == nil {
		t.Error("Expected collector and summarizer to be built")
	}
	if !errors.Is(r.pubErr, publisher.ErrMissingSetting) {
		t.Errorf("Expected sendgrid setup error to be kept, got %v", r.pubErr)
	}
	if len(r.publishers) != 1 || r.publishers[0].Name() != "stdout" {
		t.Errorf("Expected stdout publisher only, got %v", r.publishers)
	}
	if r.opts.PagesBaseURL != "https://acme.github.io/paint/" || r.opts.MetricsTextfile != "/tmp/paint.prom" {
		t.Errorf("Expected options from config, got %+v", r.opts)
	}
	if !r.opts.SaveJSON {
		t.Error("Expected JSON dump to stay enabled")
	}
}

func TestFromConfigHonoursSaveJSONSetting(t *testing.T) {
	cfg := testConfig(t)
	off := false
	cfg.Report.SaveJSON = &off

	r, err := FromConfig(cfg, Options{SaveJSON: true}, nil, nil)
	if err != nil {
		t.Fatalf("FromConfig returned error: %v", err)
	}
	if r.opts.SaveJSON {
		t.Error("Expected report.save_json=false to disable the JSON dump")
	}
}

func TestFromConfigRequiresKeys(t *testing.T) {
	cfg := testConfig(t)
	cfg.NewsAPI.APIKey = ""
	if _, err := FromConfig(cfg, Options{}, nil, nil); !errors.Is(err, fetcher.ErrMissingAPIKey) {
		t.Errorf("Expected fetcher.ErrMissingAPIKey, got %v", err)
	}

	cfg = testConfig(t)
	cfg.Summarizer.APIKey = ""
	if _, err := FromConfig(cfg, Options{}, nil, nil); err == nil {
		t.Error("Expected error for missing LLM key")
	}
}

func TestFromConfigDryRunNeedsNoKeys(t *testing.T) {
	cfg := testConfig(t)
	cfg.NewsAPI.APIKey = ""
	cfg.Summarizer.APIKey = ""

	r, err := FromConfig(cfg, Options{DryRun: true}, nil, nil)
	if err != nil {
		t.Fatalf("FromConfig returned error: %v", err)
	}
	if r.collector != nil || r.summarizer != nil || len(r.publishers) != 0 {
		t.Error("Dry run must not build remote clients")
	}
}
