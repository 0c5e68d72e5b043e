package article

import (
	"errors"
	"fmt"
	"strings"
)

// removedSentinel is what NewsAPI puts in place of content that was taken down.
const removedSentinel = "[removed]"

// UnknownSource is used when the provider omits the source name.
const UnknownSource = "Unknown"

// Raw is a search result record as the provider returns it. JSON null and a
// missing key both decode to the empty string.
type Raw struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      RawSource `json:"source"`
	PublishedAt string    `json:"publishedAt"`
	URLToImage  string    `json:"urlToImage"`
}

// RawSource is the nested source object of a Raw record.
type RawSource struct {
	Name string `json:"name"`
}

// Reason explains why a raw record was rejected.
type Reason string

const (
	ReasonMissingTitle       Reason = "missing_title"
	ReasonMissingURL         Reason = "missing_url"
	ReasonRemovedTitle       Reason = "removed_title"
	ReasonRemovedDescription Reason = "removed_description"
)

// ErrRejected matches every RejectionError via errors.Is.
var ErrRejected = errors.New("article: record rejected")

// RejectionError is returned by Parse for records that fail the quality filter.
type RejectionError struct {
	Reason Reason
	Title  string
	URL    string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("article: record rejected (%s): %q", e.Reason, e.Title)
}

func (e *RejectionError) Is(target error) bool {
	return target == ErrRejected
}

// Check applies the quality rules to a raw record. The first failing rule is
// reported; ok is true when the record is acceptable.
func Check(raw Raw) (reason Reason, ok bool) {
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return ReasonMissingTitle, false
	}
	if strings.TrimSpace(raw.URL) == "" {
		return ReasonMissingURL, false
	}
	if strings.ToLower(title) == removedSentinel {
		return ReasonRemovedTitle, false
	}
	if strings.ToLower(strings.TrimSpace(raw.Description)) == removedSentinel {
		return ReasonRemovedDescription, false
	}
	return "", true
}

// Accept reports whether a raw record passes the quality filter.
func Accept(raw Raw) bool {
	_, ok := Check(raw)
	return ok
}

// Parse validates a raw record and, if it passes, builds the Article with all
// string fields trimmed. Rejected records never become Articles.
func Parse(raw Raw) (*Article, error) {
	if reason, ok := Check(raw); !ok {
		return nil, &RejectionError{Reason: reason, Title: raw.Title, URL: raw.URL}
	}

	source := strings.TrimSpace(raw.Source.Name)
	if source == "" {
		source = UnknownSource
	}

	return &Article{
		Title:       strings.TrimSpace(raw.Title),
		Description: strings.TrimSpace(raw.Description),
		URL:         strings.TrimSpace(raw.URL),
		Source:      source,
		PublishedAt: strings.TrimSpace(raw.PublishedAt),
		ImageURL:    strings.TrimSpace(raw.URLToImage),
	}, nil
}
