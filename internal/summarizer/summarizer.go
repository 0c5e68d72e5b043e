package summarizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ryosukesatoh/paint-news/internal/article"
	"github.com/ryosukesatoh/paint-news/internal/config"
	"github.com/ryosukesatoh/paint-news/internal/logger"
	"github.com/ryosukesatoh/paint-news/internal/metrics"
)

// Summarizer fills TitleTranslated, SummaryTranslated and Category of each
// article in place. It must not reorder or drop articles.
type Summarizer interface {
	Summarize(ctx context.Context, articles []*article.Article) error
}

// New creates a new summarizer based on the configuration
func New(cfg *config.Config, log logger.Logger, m *metrics.Metrics) (Summarizer, error) {
	switch cfg.Summarizer.Type {
	case "anthropic":
		return NewAnthropicSummarizer(AnthropicOptions{
			APIKey:       cfg.Summarizer.APIKey,
			BaseURL:      cfg.Summarizer.BaseURL,
			Model:        cfg.Summarizer.Model,
			MaxTokens:    cfg.Summarizer.MaxTokens,
			MaxAttempts:  cfg.Summarizer.MaxRetries,
			BaseDelay:    cfg.Summarizer.BaseDelay,
			CallInterval: cfg.Summarizer.CallInterval,
		}, log, m)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSummarizerType, cfg.Summarizer.Type)
	}
}

// ErrUnsupportedSummarizerType is returned when an unsupported summarizer type is specified
var ErrUnsupportedSummarizerType = errors.New("unsupported summarizer type")

// ErrMissingAPIKey is returned when the LLM credential is not configured.
var ErrMissingAPIKey = errors.New("summarizer: API key is not configured")

// Translation is the per-article result of the LLM stage.
type Translation struct {
	TitleJA   string           `json:"title_ja"`
	SummaryJA string           `json:"summary_ja"`
	Category  article.Category `json:"category"`
}

// Apply copies t onto a.
func (t Translation) Apply(a *article.Article) {
	a.TitleTranslated = t.TitleJA
	a.SummaryTranslated = t.SummaryJA
	a.Category = t.Category
}
