package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryosukesatoh/paint-news/internal/article"
	"github.com/ryosukesatoh/paint-news/internal/config"
	"github.com/ryosukesatoh/paint-news/internal/logger"
	"github.com/ryosukesatoh/paint-news/internal/metrics"
)

type fakeProvider struct {
	mu        sync.Mutex
	responses map[string][]article.Raw
	errs      map[string]error
	delays    map[string]time.Duration
	requests  []SearchRequest
}

func (f *fakeProvider) Search(ctx context.Context, req SearchRequest) ([]article.Raw, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	delay := f.delays[req.Query]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.errs[req.Query]; err != nil {
		return nil, err
	}
	return f.responses[req.Query], nil
}

var fixedNow = func() time.Time { return time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC) }

func raw(title, url, published string) article.Raw {
	return article.Raw{
		Title:       title,
		Description: "desc of " + title,
		URL:         url,
		Source:      article.RawSource{Name: "Coatings World"},
		PublishedAt: published,
	}
}

func titlesOf(articles []*article.Article) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.Title
	}
	return out
}

func newTestCollector(p Provider, groups []string, m *metrics.Metrics) *Collector {
	return NewCollector(p, Options{
		KeywordGroups:  groups,
		PageSize:       10,
		MaxArticles:    20,
		DaysBack:       7,
		ExcludeDomains: []string{"youtube.com"},
		Now:            fixedNow,
	}, logger.NewNop(), m)
}

func TestCollectEndToEnd(t *testing.T) {
	p := &fakeProvider{responses: map[string][]article.Raw{
		"group-a": {
			raw("Paint booth saves energy", "https://a.com/1", "2025-01-10T09:00:00Z"),
			raw("[Removed]", "https://removed.com", "2025-01-14T00:00:00Z"),
		},
		"group-b": {
			{Title: "Gone", Description: "[Removed]", URL: "https://removed.com/2"},
			raw("VOC regulation update in EU", "https://b.com/1", "2025-01-12T09:00:00Z"),
		},
	}}
	m := metrics.New()

	res, err := newTestCollector(p, []string{"group-a", "group-b"}, m).Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"VOC regulation update in EU", "Paint booth saves energy"}, titlesOf(res.Articles))
	assert.Equal(t, Stats{Queries: 2, Fetched: 4, Accepted: 2, Rejected: 2, Returned: 2}, res.Stats)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ArticlesTotal.WithLabelValues(metrics.StageRejected)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues(metrics.OutcomeSuccess)))

	for _, a := range res.Articles {
		assert.Empty(t, a.TitleTranslated)
		assert.Empty(t, a.SummaryTranslated)
		assert.Equal(t, "Coatings World", a.Source)
	}
}

func TestCollectBuildsDateWindow(t *testing.T) {
	p := &fakeProvider{}

	_, err := newTestCollector(p, []string{"q1", "q2"}, nil).Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, p.requests, 2)
	for i, req := range p.requests {
		assert.Equal(t, fmt.Sprintf("q%d", i+1), req.Query)
		assert.Equal(t, "2025-01-08", req.From)
		assert.Equal(t, "2025-01-15", req.To)
		assert.Equal(t, 10, req.PageSize)
		assert.Equal(t, []string{"youtube.com"}, req.ExcludeDomains)
	}
}

func TestCollectIsolatesFailedQueries(t *testing.T) {
	p := &fakeProvider{
		responses: map[string][]article.Raw{
			"ok": {raw("Curing ovens go electric", "https://c.com/1", "2025-01-11T00:00:00Z")},
		},
		errs: map[string]error{"broken": errors.New("dial tcp: connection refused")},
	}
	m := metrics.New()

	res, err := newTestCollector(p, []string{"broken", "ok"}, m).Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Curing ovens go electric"}, titlesOf(res.Articles))
	assert.Equal(t, 1, res.Stats.FailedQueries)
	assert.Len(t, p.requests, 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues(metrics.OutcomeFailure)))
}

func TestCollectAllQueriesFailIsEmptyNotError(t *testing.T) {
	p := &fakeProvider{errs: map[string]error{
		"a": &ProviderError{StatusCode: 500},
		"b": &ProviderError{StatusCode: 429, Code: "rateLimited"},
	}}

	res, err := newTestCollector(p, []string{"a", "b"}, nil).Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Articles)
	assert.Equal(t, 2, res.Stats.FailedQueries)
}

func TestCollectMissingDatesSinkInOrder(t *testing.T) {
	p := &fakeProvider{responses: map[string][]article.Raw{
		"q": {
			raw("Color matching app launches", "https://d.com/1", ""),
			raw("Robotic sprayers cut overspray", "https://d.com/2", "2025-01-13T00:00:00Z"),
			raw("Bridge repainting project begins", "https://d.com/3", "not a date"),
			raw("Waterborne primers gain share", "https://d.com/4", "2025-01-09T00:00:00Z"),
		},
	}}

	res, err := newTestCollector(p, []string{"q"}, nil).Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Robotic sprayers cut overspray",
		"Waterborne primers gain share",
		"Color matching app launches",
		"Bridge repainting project begins",
	}, titlesOf(res.Articles))
}

func TestCollectTruncatesToMostRecent(t *testing.T) {
	titles := []string{
		"Paint booth saves energy", "VOC regulation update in EU", "Powder coating demand rises in India",
		"Robotic sprayers cut overspray", "Automaker opens new paint shop", "Waterborne primers gain share",
		"Coating giant reports record quarter", "Curing ovens go electric", "Anti-corrosion film passes salt test",
		"Startup raises funds for nano paint", "Shipyard adopts drone inspection", "Aerospace finish standard revised",
		"Solvent recycling plant expands", "Color matching app launches", "Furniture lacquer prices climb",
		"Bridge repainting project begins", "Infrared drying trial succeeds", "Trade show returns to Chicago",
		"Worker safety rules tightened", "Graphene additive boosts hardness", "Acquisition reshapes sealant market",
		"Bio-based resin enters production", "Warehouse floors get epoxy upgrade", "Wind turbine blades need new topcoat",
		"Pipeline coatings face scrutiny",
	}
	require.Len(t, titles, 25)

	base := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	var raws []article.Raw
	for i, title := range titles {
		published := base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339)
		raws = append(raws, raw(title, fmt.Sprintf("https://e.com/%d", i), published))
	}
	p := &fakeProvider{responses: map[string][]article.Raw{"q": raws}}

	res, err := newTestCollector(p, []string{"q"}, nil).Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Articles, 20)
	assert.Equal(t, 0, res.Stats.Duplicates)
	for i, a := range res.Articles {
		assert.Equal(t, titles[24-i], a.Title)
	}
}

func TestCollectConcurrentKeepsGroupOrder(t *testing.T) {
	p := &fakeProvider{
		responses: map[string][]article.Raw{
			"slow": {raw("Paint Booth Saves Energy", "https://slow.com/1", "2025-01-10T00:00:00Z")},
			"fast": {raw("Paint booth saves energy!", "https://fast.com/1", "2025-01-10T00:00:00Z")},
		},
		delays: map[string]time.Duration{"slow": 50 * time.Millisecond},
	}
	c := NewCollector(p, Options{
		KeywordGroups: []string{"slow", "fast"},
		PageSize:      10,
		MaxArticles:   20,
		DaysBack:      7,
		Concurrency:   2,
		Now:           fixedNow,
	}, logger.NewNop(), nil)

	res, err := c.Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Articles, 1)
	assert.Equal(t, "https://slow.com/1", res.Articles[0].URL)
	assert.Equal(t, 1, res.Stats.Duplicates)
}

func TestCollectCancelledDiscardsResults(t *testing.T) {
	p := &fakeProvider{
		responses: map[string][]article.Raw{
			"q": {raw("Curing ovens go electric", "https://c.com/1", "2025-01-11T00:00:00Z")},
		},
		delays: map[string]time.Duration{"q": time.Second},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := newTestCollector(p, []string{"q"}, nil).Collect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, res)
}

func TestNewRequiresAPIKey(t *testing.T) {
	cfg := &config.Config{NewsAPI: config.NewsAPIConfig{BaseURL: config.DefaultNewsAPIURL}}
	_, err := New(cfg, logger.NewNop(), nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	cfg.NewsAPI.APIKey = "key"
	c, err := New(cfg, logger.NewNop(), nil)
	require.NoError(t, err)
	assert.NotNil(t, c)
}
