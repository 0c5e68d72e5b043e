package fetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/ryosukesatoh/paint-news/internal/article"
)

// SearchRequest is one keyword-group query against a news search provider.
type SearchRequest struct {
	Query          string
	From           string // YYYY-MM-DD
	To             string // YYYY-MM-DD
	PageSize       int
	ExcludeDomains []string
}

// Provider is a news search backend. Implementations return raw records as
// delivered; filtering happens in the Collector.
type Provider interface {
	Search(ctx context.Context, req SearchRequest) ([]article.Raw, error)
}

// ErrMissingAPIKey is returned by constructors when no search credential is set.
var ErrMissingAPIKey = errors.New("fetcher: search API key is not configured")

// ProviderError is a non-success answer from the search provider, either an
// HTTP error status or a body whose status is not "ok".
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("fetcher: provider returned status %d", e.StatusCode)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}
