package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ryosukesatoh/paint-news/internal/article"
)

type newsAPIResponse struct {
	Status       string        `json:"status"`
	Code         string        `json:"code"`
	Message      string        `json:"message"`
	TotalResults int           `json:"totalResults"`
	Articles     []article.Raw `json:"articles"`
}

// NewsAPIClient searches the NewsAPI "everything" endpoint.
type NewsAPIClient struct {
	client  *resty.Client
	baseURL string
	apiKey  string
}

// NewNewsAPIClient returns ErrMissingAPIKey when apiKey is empty.
func NewNewsAPIClient(apiKey, baseURL string, timeout time.Duration) (*NewsAPIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NewsAPIClient{
		client:  resty.New().SetTimeout(timeout).SetHeader("Accept", "application/json"),
		baseURL: baseURL,
		apiKey:  apiKey,
	}, nil
}

func (c *NewsAPIClient) Search(ctx context.Context, req SearchRequest) ([]article.Raw, error) {
	params := map[string]string{
		"q":        req.Query,
		"from":     req.From,
		"to":       req.To,
		"language": "en",
		"sortBy":   "relevancy",
		"pageSize": strconv.Itoa(req.PageSize),
		"apiKey":   c.apiKey,
	}
	if len(req.ExcludeDomains) > 0 {
		params["excludeDomains"] = strings.Join(req.ExcludeDomains, ",")
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("newsapi: request failed: %w", err)
	}

	var body newsAPIResponse
	decodeErr := json.Unmarshal(resp.Body(), &body)

	if resp.IsError() {
		return nil, &ProviderError{StatusCode: resp.StatusCode(), Code: body.Code, Message: body.Message}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("newsapi: failed to parse response: %w", decodeErr)
	}
	if body.Status != "ok" {
		return nil, &ProviderError{StatusCode: resp.StatusCode(), Code: body.Code, Message: body.Message}
	}

	return body.Articles, nil
}
