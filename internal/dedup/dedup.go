// Package dedup removes exact and near-duplicate articles from a merged
// candidate list.
//
// Exact duplicates share a normalized URL. Near duplicates have titles whose
// Ratcliff/Obershelp similarity (the difflib "ratio": twice the number of
// characters in matching blocks divided by the total length) reaches the
// threshold against any title already kept. The first occurrence always wins.
package dedup

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/ryosukesatoh/paint-news/internal/article"
	"github.com/ryosukesatoh/paint-news/internal/logger"
)

// DefaultThreshold is the title similarity at or above which two articles are
// treated as the same story.
const DefaultThreshold = 0.75

// Stats summarises one Dedup pass.
type Stats struct {
	Input        int
	DroppedURL   int
	DroppedTitle int
	Kept         int
}

// Dropped is the total number of articles removed.
func (s Stats) Dropped() int {
	return s.DroppedURL + s.DroppedTitle
}

// Deduplicator holds the threshold and logger for dedup passes. It keeps no
// state between calls.
type Deduplicator struct {
	threshold float64
	log       logger.Logger
}

// New creates a Deduplicator. A threshold outside (0, 1] falls back to
// DefaultThreshold.
func New(threshold float64, log logger.Logger) *Deduplicator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Deduplicator{threshold: threshold, log: log}
}

// Threshold returns the similarity cut-off in use.
func (d *Deduplicator) Threshold() float64 {
	return d.threshold
}

// Dedup returns the articles that survive, in their original relative order.
// Each incoming article is checked against the URLs and titles accepted so
// far; accepted articles are never compared with each other again.
func (d *Deduplicator) Dedup(articles []*article.Article) ([]*article.Article, Stats) {
	stats := Stats{Input: len(articles)}
	seenURLs := make(map[string]struct{}, len(articles))
	kept := make([]*article.Article, 0, len(articles))
	keptTitles := make([][]string, 0, len(articles))

	for _, a := range articles {
		normalized := NormalizeURL(a.URL)
		if _, dup := seenURLs[normalized]; dup {
			d.log.Debug("Dropping duplicate URL",
				logger.String("title", a.Title),
				logger.String("url", a.URL),
			)
			stats.DroppedURL++
			continue
		}

		title := titleRunes(a.Title)
		if i, score, dup := d.findSimilar(title, keptTitles); dup {
			d.log.Debug("Dropping similar title",
				logger.String("title", a.Title),
				logger.String("kept_title", kept[i].Title),
				logger.Float64("similarity", score),
			)
			stats.DroppedTitle++
			continue
		}

		seenURLs[normalized] = struct{}{}
		kept = append(kept, a)
		keptTitles = append(keptTitles, title)
	}

	stats.Kept = len(kept)
	return kept, stats
}

func (d *Deduplicator) findSimilar(title []string, keptTitles [][]string) (int, float64, bool) {
	for i, existing := range keptTitles {
		if score := ratio(title, existing); score >= d.threshold {
			return i, score, true
		}
	}
	return -1, 0, false
}

// NormalizeURL strips trailing slashes and lowercases the URL.
func NormalizeURL(u string) string {
	return strings.ToLower(strings.TrimRight(u, "/"))
}

// Similarity returns the case-insensitive character-sequence ratio of two
// titles, in [0, 1].
func Similarity(a, b string) float64 {
	return ratio(titleRunes(a), titleRunes(b))
}

func ratio(a, b []string) float64 {
	return difflib.NewMatcher(a, b).Ratio()
}

// titleRunes lowercases s and splits it into one element per character, the
// sequence form difflib matches over.
func titleRunes(s string) []string {
	lower := strings.ToLower(s)
	out := make([]string, 0, len(lower))
	for _, r := range lower {
		out = append(out, string(r))
	}
	return out
}
