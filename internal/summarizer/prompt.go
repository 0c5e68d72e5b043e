package summarizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ryosukesatoh/paint-news/internal/article"
)

const (
	noSummaryText     = "（要約なし）"
	failedSummaryText = "（翻訳に失敗しました）"
)

const systemPrompt = `あなたは塗装業界の専門翻訳者兼アナリストです。
英語のニュース記事を日本語に翻訳・要約する際、以下のルールに従ってください：

1. タイトルは自然な日本語に翻訳する（意訳可）
2. 要約は3〜5行で、記事の核心を的確に伝える
3. 塗装業界の専門用語は適切な日本語訳を使用する
4. カテゴリは以下から1つ選択する:
   - equipment: 塗装設備（ブース、乾燥炉、スプレーガン等）
   - technology: 塗装技術（新工法、研究開発等）
   - automotive: 自動車塗装（自動車メーカー、車体塗装等）
   - regulation: 環境規制（VOC、排出規制、安全基準等）
   - market: 市場動向（業界統計、需要予測等）
   - company: 企業ニュース（買収、新製品、人事等）
   - other: その他

回答は必ず以下のJSON形式で返してください:
{
  "title_ja": "日本語タイトル",
  "summary_ja": "3〜5行の日本語要約",
  "category": "カテゴリキー"
}
`

var errMalformedResponse = errors.New("summarizer: malformed model response")

func buildUserPrompt(a *article.Article) string {
	parts := []string{
		"Title: " + a.Title,
		"Source: " + a.Source,
	}
	if desc := plainText(a.Description); desc != "" {
		parts = append(parts, "Description: "+desc)
	}
	parts = append(parts, "URL: "+a.URL)
	return strings.Join(parts, "\n")
}

// plainText strips markup some feeds leave in descriptions and collapses
// whitespace.
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// stripFences returns the body of the first ``` block when text starts with
// one, otherwise text unchanged.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	var body []string
	inBlock := false
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "```") {
			if inBlock {
				break
			}
			inBlock = true
			continue
		}
		if inBlock {
			body = append(body, line)
		}
	}
	return strings.Join(body, "\n")
}

// parseResponse decodes the model output. Missing fields fall back to the
// source article and the category is coerced onto the known set.
func parseResponse(text string, a *article.Article) (Translation, error) {
	var raw struct {
		TitleJA   *string `json:"title_ja"`
		SummaryJA *string `json:"summary_ja"`
		Category  *string `json:"category"`
	}
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return Translation{}, fmt.Errorf("%w: %w", errMalformedResponse, err)
	}

	t := Translation{
		TitleJA:   a.Title,
		SummaryJA: a.Description,
		Category:  article.CategoryOther,
	}
	if t.SummaryJA == "" {
		t.SummaryJA = noSummaryText
	}
	if raw.TitleJA != nil {
		t.TitleJA = *raw.TitleJA
	}
	if raw.SummaryJA != nil {
		t.SummaryJA = *raw.SummaryJA
	}
	if raw.Category != nil {
		t.Category = article.NormalizeCategory(*raw.Category)
	}
	return t, nil
}

// missingKeys lists the expected keys that are absent or null.
func missingKeys(text string) []string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripFences(text)), &m); err != nil {
		return nil
	}
	var missing []string
	for _, k := range []string{"title_ja", "summary_ja", "category"} {
		if v, ok := m[k]; !ok || strings.TrimSpace(string(v)) == "null" {
			missing = append(missing, k)
		}
	}
	return missing
}

func fallback(a *article.Article) Translation {
	summary := a.Description
	if summary == "" {
		summary = failedSummaryText
	}
	return Translation{TitleJA: a.Title, SummaryJA: summary, Category: article.CategoryOther}
}
