package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"

	"github.com/ryosukesatoh/paint-news/internal/article"
	"github.com/ryosukesatoh/paint-news/internal/config"
	"github.com/ryosukesatoh/paint-news/internal/logger"
	"github.com/ryosukesatoh/paint-news/internal/metrics"
	"github.com/ryosukesatoh/paint-news/internal/retry"
)

// AnthropicOptions configures an AnthropicSummarizer. Zero values take the
// defaults of the config package.
type AnthropicOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	// MaxTokens bounds each response.
	MaxTokens int
	// MaxAttempts is the total number of calls per article, first one included.
	MaxAttempts int
	BaseDelay   time.Duration
	// CallInterval is the minimum spacing between two API calls.
	CallInterval time.Duration
}

// AnthropicSummarizer translates and summarizes articles with the Anthropic
// Messages API, one call per article.
type AnthropicSummarizer struct {
	client    anthropic.Client
	model     string
	maxTokens int
	retry     retry.Config
	limiter   *rate.Limiter
	log       logger.Logger
	metrics   *metrics.Metrics
}

func NewAnthropicSummarizer(opts AnthropicOptions, log logger.Logger, m *metrics.Metrics) (*AnthropicSummarizer, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if log == nil {
		log = logger.NewNop()
	}
	if opts.Model == "" {
		opts.Model = config.DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		// retries are handled per article below
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(strings.TrimRight(opts.BaseURL, "/")+"/"))
	}

	limit := rate.Inf
	if opts.CallInterval > 0 {
		limit = rate.Every(opts.CallInterval)
	}

	return &AnthropicSummarizer{
		client:    anthropic.NewClient(clientOpts...),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		retry: retry.Config{
			MaxRetries: opts.MaxAttempts - 1,
			BaseDelay:  opts.BaseDelay,
			MaxDelay:   time.Minute,
			Retryable:  isRetryable,
		},
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
		metrics: m,
	}, nil
}

// Summarize translates every article in order. A failed article gets the
// fallback translation and the run continues; only context cancellation
// returns an error.
func (s *AnthropicSummarizer) Summarize(ctx context.Context, articles []*article.Article) error {
	total := len(articles)
	s.log.Info("Translation started", logger.Int("articles", total))

	fallbacks := 0
	for i, a := range articles {
		s.log.Info("Translating article",
			logger.Int("index", i+1),
			logger.Int("total", total),
			logger.String("title", a.Title),
		)

		t, err := s.translate(ctx, a)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("summarizer: translation aborted: %w", ctx.Err())
			}
			s.log.Error("Translation failed, using fallback",
				logger.String("title", a.Title),
				logger.Error(err),
			)
			s.metrics.Translation(metrics.OutcomeFallback)
			fallbacks++
			t = fallback(a)
		} else {
			s.metrics.Translation(metrics.OutcomeSuccess)
		}
		t.Apply(a)

		s.log.Info("Translated article",
			logger.String("title_ja", a.TitleTranslated),
			logger.String("category", a.Category.Label()),
		)
	}

	s.log.Info("Translation finished",
		logger.Int("articles", total),
		logger.Int("fallbacks", fallbacks),
	)
	return nil
}

func (s *AnthropicSummarizer) translate(ctx context.Context, a *article.Article) (Translation, error) {
	prompt := buildUserPrompt(a)

	var result Translation
	err := retry.WithBackoff(ctx, s.retry, func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		text, err := s.callAPI(ctx, prompt)
		if err != nil {
			s.log.Warn("Anthropic call failed",
				logger.String("title", a.Title),
				logger.Error(err),
			)
			return err
		}

		t, err := parseResponse(text, a)
		if err != nil {
			s.log.Warn("Could not parse model response",
				logger.String("title", a.Title),
				logger.Error(err),
			)
			return err
		}
		if missing := missingKeys(text); len(missing) > 0 {
			s.log.Warn("Model response is missing keys",
				logger.Strings("missing", missing),
				logger.String("title", a.Title),
			)
		}
		result = t
		return nil
	})
	return result, err
}

func (s *AnthropicSummarizer) callAPI(ctx context.Context, prompt string) (string, error) {
	msg, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: int64(s.maxTokens),
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &retry.StatusError{StatusCode: apiErr.StatusCode, Body: apiErr.Error()}
		}
		return "", fmt.Errorf("anthropic: request failed: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("%w: no text content", errMalformedResponse)
}

// isRetryable retries rate limits, overload, server errors, transport errors
// and malformed output. Other client errors are final.
func isRetryable(err error) bool {
	if errors.Is(err, errMalformedResponse) {
		return true
	}
	return retry.IsRetryable(err)
}
