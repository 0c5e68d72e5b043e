package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ryosukesatoh/paint-news/internal/article"
	"github.com/ryosukesatoh/paint-news/internal/retry"
)

type discordEmbedFooter struct {
	Text string `json:"text"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	URL         string              `json:"url,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordWebhookPayload struct {
	Username string         `json:"username,omitempty"`
	Embeds   []discordEmbed `json:"embeds"`
}

const overviewColor = 0x2563EB

// Same palette as the report badges. defaultCategoryColor covers values
// outside the known set.
const defaultCategoryColor = 0x3730A3

var categoryColors = map[article.Category]int{
	article.CategoryEquipment:  0x166534,
	article.CategoryTechnology: 0x6B21A8,
	article.CategoryAutomotive: 0x1E40AF,
	article.CategoryRegulation: 0x92400E,
	article.CategoryMarket:     0x9D174D,
	article.CategoryCompany:    0x0F766E,
	article.CategoryOther:      0x374151,
}

// DiscordPublisher posts the notification to a Discord channel via webhook.
type DiscordPublisher struct {
	webhookURL  string
	client      *http.Client
	retryConfig retry.Config
	batchDelay  time.Duration
}

// NewDiscordPublisher creates a new DiscordPublisher.
func NewDiscordPublisher(webhookURL string) *DiscordPublisher {
	return &DiscordPublisher{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		retryConfig: retry.Config{
			MaxRetries: 3,
			BaseDelay:  1 * time.Second,
		},
		batchDelay: 500 * time.Millisecond,
	}
}

func (d *DiscordPublisher) Name() string { return "discord" }

// Publish sends an overview embed followed by one embed per article.
func (d *DiscordPublisher) Publish(ctx context.Context, n *Notification) error {
	batches := batchEmbeds(buildEmbeds(n))

	for i, batch := range batches {
		err := retry.WithBackoff(ctx, d.retryConfig, func(ctx context.Context) error {
			return d.sendWebhook(ctx, batch)
		})
		if err != nil {
			return fmt.Errorf("discord: failed to send batch %d: %w", i+1, err)
		}

		// Delay between batches to avoid rate limits.
		if i < len(batches)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.batchDelay):
			}
		}
	}
	return nil
}

func buildEmbeds(n *Notification) []discordEmbed {
	embeds := make([]discordEmbed, 0, len(n.Articles)+1)

	desc := fmt.Sprintf("📰 今週は **%d件** の記事を収集しました。", len(n.Articles))
	if summary := CategorySummary(n.Articles); summary != "" {
		desc += "\n" + summary
	}
	overview := discordEmbed{
		Title:       truncate(Subject(n), 256),
		URL:         n.ReportURL,
		Description: truncate(desc, 4096),
		Color:       overviewColor,
		Footer:      &discordEmbedFooter{Text: n.IssueDate + "号"},
	}
	if titles, remaining := preview(n.Articles); len(titles) > 0 {
		value := formatBullets(titles)
		if remaining > 0 {
			value += fmt.Sprintf("\n他 %d 件の記事...", remaining)
		}
		overview.Fields = []discordEmbedField{{Name: "今週の注目記事", Value: truncate(value, 1024)}}
	}
	embeds = append(embeds, overview)

	for i, a := range n.Articles {
		e := discordEmbed{
			Title:       truncate(fmt.Sprintf("%d. %s", i+1, a.DisplayTitle()), 256),
			URL:         a.URL,
			Description: truncate(a.SummaryTranslated, 4096),
			Color:       categoryColor(a.Category),
		}
		if a.DisplayTitle() != a.Title {
			e.Fields = []discordEmbedField{{Name: "原題", Value: truncate(a.Title, 1024)}}
		}

		footer := []string{a.Category.Label()}
		if a.Source != "" {
			footer = append(footer, a.Source)
		}
		e.Footer = &discordEmbedFooter{Text: truncate(strings.Join(footer, " | "), 2048)}
		if t := a.PublishedTime(); !t.IsZero() {
			e.Timestamp = t.UTC().Format(time.RFC3339)
		}

		embeds = append(embeds, e)
	}

	return embeds
}

func categoryColor(c article.Category) int {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return defaultCategoryColor
}

// batchEmbeds splits embeds into batches respecting Discord limits:
// max 10 embeds per message, max 6000 total characters per message.
func batchEmbeds(embeds []discordEmbed) [][]discordEmbed {
	var batches [][]discordEmbed
	var current []discordEmbed
	currentChars := 0

	for _, e := range embeds {
		ec := embedCharCount(e)

		if len(current) > 0 && (len(current) >= 10 || currentChars+ec > 6000) {
			batches = append(batches, current)
			current = nil
			currentChars = 0
		}

		current = append(current, e)
		currentChars += ec
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}

func (d *DiscordPublisher) sendWebhook(ctx context.Context, embeds []discordEmbed) error {
	payload := discordWebhookPayload{Username: senderName, Embeds: embeds}

	body, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &retry.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return nil
}

// truncate shortens s to max characters, preferring a sentence boundary.
// Discord counts characters, not bytes.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	cut := string([]rune(s)[:max-1])
	if idx := strings.LastIndexAny(cut, ".!?。！？"); idx >= 0 && utf8.RuneCountInString(cut[:idx]) > max/2 {
		_, size := utf8.DecodeRuneInString(cut[idx:])
		return cut[:idx+size]
	}
	return cut + "…"
}

func formatBullets(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("• ")
		b.WriteString(item)
	}
	return b.String()
}

// embedCharCount returns the total character count of an embed for batching purposes.
func embedCharCount(e discordEmbed) int {
	n := utf8.RuneCountInString(e.Title) + utf8.RuneCountInString(e.Description)
	for _, f := range e.Fields {
		n += utf8.RuneCountInString(f.Name) + utf8.RuneCountInString(f.Value)
	}
	if e.Footer != nil {
		n += utf8.RuneCountInString(e.Footer.Text)
	}
	return n
}
