package publisher

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/ryosukesatoh/paint-news/internal/article"
)

// previewCount is how many titles the notification lists before "他 N 件".
const previewCount = 5

const senderName = "塗装業界ニュース"

// Subject is the notification subject line.
func Subject(n *Notification) string {
	return fmt.Sprintf("🎨 塗装業界ニュース %s号 — %d件の記事", n.IssueDate, len(n.Articles))
}

// CategorySummary lists the non-empty categories as "label: N件" joined by
// " ｜ ".
func CategorySummary(articles []*article.Article) string {
	var parts []string
	for _, c := range article.CountCategories(articles) {
		if c.Count > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d件", c.Label, c.Count))
		}
	}
	return strings.Join(parts, " ｜ ")
}

// preview returns the titles shown in the notification and how many articles
// were left out.
func preview(articles []*article.Article) ([]string, int) {
	n := min(len(articles), previewCount)
	titles := make([]string, n)
	for i := range n {
		titles[i] = articles[i].DisplayTitle()
	}
	return titles, len(articles) - n
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="ja">
<head><meta charset="UTF-8"></head>
<body style="margin:0;padding:0;background:#f8f9fa;font-family:-apple-system,BlinkMacSystemFont,'Hiragino Sans','Noto Sans JP',sans-serif;">
<div style="max-width:560px;margin:0 auto;padding:32px 20px;">
    <div style="text-align:center;margin-bottom:24px;">
        <h1 style="font-size:1.25rem;color:#1a1a2e;margin:0;">🎨 塗装業界ウィークリーニュース</h1>
        <p class="issue" style="color:#6b7280;font-size:0.875rem;margin-top:4px;">{{.IssueDate}}号</p>
    </div>
    <div style="background:#ffffff;border:1px solid #e5e7eb;border-radius:8px;padding:16px 20px;margin-bottom:16px;">
        <p class="total" style="margin:0;color:#374151;font-size:0.9rem;">📰 今週は <strong>{{.Total}}件</strong> の記事を収集しました。</p>
        {{- if .CategorySummary}}
        <p class="categories" style="margin:8px 0 0;color:#6b7280;font-size:0.8rem;">{{.CategorySummary}}</p>
        {{- end}}
    </div>
    {{- if .Preview}}
    <div style="background:#ffffff;border:1px solid #e5e7eb;border-radius:8px;padding:16px 20px;margin-bottom:20px;">
        <p style="margin:0 0 10px;color:#6b7280;font-size:0.8rem;font-weight:600;">今週の注目記事</p>
        <ul class="preview" style="margin:0;padding-left:20px;font-size:0.85rem;">
            {{- range .Preview}}
            <li style="margin-bottom:8px;color:#374151;">{{.}}</li>
            {{- end}}
        </ul>
        {{- if .Remaining}}
        <p class="remaining" style="margin:8px 0 0;color:#6b7280;font-size:0.8rem;">他 {{.Remaining}} 件の記事...</p>
        {{- end}}
    </div>
    {{- end}}
    <div style="text-align:center;margin-bottom:24px;">
        <a class="cta" href="{{.ReportURL}}" style="display:inline-block;padding:12px 32px;background:#2563eb;color:#ffffff;text-decoration:none;border-radius:8px;font-weight:600;font-size:0.9rem;">レポートを読む →</a>
    </div>
    <div style="text-align:center;font-size:0.75rem;color:#9ca3af;">
        <p>このメールは塗装業界ニュース自動まとめツールにより送信されています。</p>
        <p><a class="archive" href="{{.IndexURL}}" style="color:#6b7280;">過去のレポート一覧</a></p>
    </div>
</div>
</body>
</html>
`))

type emailData struct {
	IssueDate       string
	Total           int
	CategorySummary string
	Preview         []string
	Remaining       int
	ReportURL       string
	IndexURL        string
}

// BuildEmailHTML renders the HTML notification body.
func BuildEmailHTML(n *Notification) (string, error) {
	titles, remaining := preview(n.Articles)
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, emailData{
		IssueDate:       n.IssueDate,
		Total:           len(n.Articles),
		CategorySummary: CategorySummary(n.Articles),
		Preview:         titles,
		Remaining:       remaining,
		ReportURL:       n.ReportURL,
		IndexURL:        n.IndexURL,
	})
	if err != nil {
		return "", fmt.Errorf("publisher: render email: %w", err)
	}
	return buf.String(), nil
}
