// Package article holds the news item model and the boundary that turns raw
// search-provider records into Articles.
package article

import (
	"strings"
	"time"
)

// Article is one news item. The translated fields are filled in by the
// summarizer after collection has finished.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
	ImageURL    string `json:"image_url,omitempty"`

	TitleTranslated   string   `json:"title_ja"`
	SummaryTranslated string   `json:"summary_ja"`
	Category          Category `json:"category"`
}

// publishedLayouts are tried in order by PublishedTime.
var publishedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// PublishedTime parses PublishedAt. A missing or unparseable timestamp yields
// the zero time so that such articles rank below every dated one.
func (a *Article) PublishedTime() time.Time {
	s := strings.TrimSpace(a.PublishedAt)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// DisplayTitle prefers the translated title when one is set.
func (a *Article) DisplayTitle() string {
	if a.TitleTranslated != "" {
		return a.TitleTranslated
	}
	return a.Title
}

func (a *Article) String() string {
	return "Article(title=" + a.Title + ", source=" + a.Source + ")"
}
