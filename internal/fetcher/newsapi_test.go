package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

const sampleNewsAPIResponse = `{
  "status": "ok",
  "totalResults": 2,
  "articles": [
    {
      "source": {"id": null, "name": "Coatings World"},
      "author": "Jane Doe",
      "title": "  Paint booth saves energy  ",
      "description": "A new booth design cuts gas use.",
      "url": "https://coatings.example/booth",
      "urlToImage": "https://coatings.example/booth.jpg",
      "publishedAt": "2025-01-15T08:30:00Z",
      "content": "..."
    },
    {
      "source": {"id": null, "name": null},
      "title": "[Removed]",
      "description": "[Removed]",
      "url": "https://removed.com",
      "urlToImage": null,
      "publishedAt": "1970-01-01T00:00:00Z"
    }
  ]
}`

func TestSearchSendsQueryParameters(t *testing.T) {
	var got url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleNewsAPIResponse))
	}))
	defer ts.Close()

	c, err := NewNewsAPIClient("secret", ts.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewNewsAPIClient returned error: %v", err)
	}

	raws, err := c.Search(context.Background(), SearchRequest{
		Query:          `"paint booth" OR "spray booth"`,
		From:           "2025-01-08",
		To:             "2025-01-15",
		PageSize:       10,
		ExcludeDomains: []string{"youtube.com", "reddit.com"},
	})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	want := map[string]string{
		"q":              `"paint booth" OR "spray booth"`,
		"from":           "2025-01-08",
		"to":             "2025-01-15",
		"language":       "en",
		"sortBy":         "relevancy",
		"pageSize":       "10",
		"apiKey":         "secret",
		"excludeDomains": "youtube.com,reddit.com",
	}
	for k, v := range want {
		if got.Get(k) != v {
			t.Errorf("Expected %s=%q, got %q", k, v, got.Get(k))
		}
	}

	if len(raws) != 2 {
		t.Fatalf("Expected 2 raw records, got %d", len(raws))
	}
	if raws[0].Source.Name != "Coatings World" {
		t.Errorf("Expected source 'Coatings World', got %q", raws[0].Source.Name)
	}
	if raws[0].URLToImage != "https://coatings.example/booth.jpg" {
		t.Errorf("Expected image url, got %q", raws[0].URLToImage)
	}
	if raws[1].URLToImage != "" {
		t.Errorf("Expected null image url to decode empty, got %q", raws[1].URLToImage)
	}
}

func TestSearchOmitsEmptyExcludeDomains(t *testing.T) {
	var got url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(`{"status":"ok","articles":[]}`))
	}))
	defer ts.Close()

	c, _ := NewNewsAPIClient("secret", ts.URL, time.Second)
	raws, err := c.Search(context.Background(), SearchRequest{Query: "paint", PageSize: 5})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(raws) != 0 {
		t.Errorf("Expected no records, got %d", len(raws))
	}
	if _, ok := got["excludeDomains"]; ok {
		t.Errorf("Expected excludeDomains to be omitted, got %q", got.Get("excludeDomains"))
	}
}

func TestSearchErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid."}`))
	}))
	defer ts.Close()

	c, _ := NewNewsAPIClient("bad", ts.URL, time.Second)
	_, err := c.Search(context.Background(), SearchRequest{Query: "paint"})

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if pe.StatusCode != http.StatusUnauthorized || pe.Code != "apiKeyInvalid" {
		t.Errorf("Unexpected provider error %+v", pe)
	}
}

func TestSearchStatusNotOK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","code":"rateLimited","message":"Too many requests"}`))
	}))
	defer ts.Close()

	c, _ := NewNewsAPIClient("secret", ts.URL, time.Second)
	_, err := c.Search(context.Background(), SearchRequest{Query: "paint"})

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if pe.Code != "rateLimited" {
		t.Errorf("Expected code rateLimited, got %q", pe.Code)
	}
}

func TestSearchMalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer ts.Close()

	c, _ := NewNewsAPIClient("secret", ts.URL, time.Second)
	if _, err := c.Search(context.Background(), SearchRequest{Query: "paint"}); err == nil {
		t.Fatal("Expected parse error")
	}
}

func TestSearchTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"status":"ok","articles":[]}`))
	}))
	defer ts.Close()

	c, _ := NewNewsAPIClient("secret", ts.URL, 20*time.Millisecond)
	if _, err := c.Search(context.Background(), SearchRequest{Query: "paint"}); err == nil {
		t.Fatal("Expected timeout error")
	}
}

func TestNewNewsAPIClientRequiresKey(t *testing.T) {
	for _, key := range []string{"", "   "} {
		if _, err := NewNewsAPIClient(key, "http://unused", time.Second); !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("Expected ErrMissingAPIKey for %q, got %v", key, err)
		}
	}
}
