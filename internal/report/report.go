// Package report renders the weekly HTML report, the archive index and the
// JSON article dump into the published output directory.
package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ryosukesatoh/paint-news/internal/article"
	"github.com/ryosukesatoh/paint-news/internal/logger"
)

// JST is the zone every date in the report is shown in.
var JST = time.FixedZone("JST", 9*60*60)

const (
	reportPrefix = "weekly-news-"
	reportExt    = ".html"
	indexFile    = "index.html"

	fileDateLayout  = "2006-01-02"
	issueDateLayout = "2006年01月02日"
	periodLayout    = "2006/01/02"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("report").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	ParseFS(templateFS, "templates/*.html"))

// Report describes a rendered weekly report.
type Report struct {
	Path      string
	Filename  string
	IssueDate string
}

// URL joins the published base URL and the report filename.
func (r *Report) URL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/" + r.Filename
}

// Filename returns the report filename for the JST date of now.
func Filename(now time.Time) string {
	return reportPrefix + now.In(JST).Format(fileDateLayout) + reportExt
}

// IssueDate formats now as the issue label used in reports and mail.
func IssueDate(now time.Time) string {
	return now.In(JST).Format(issueDateLayout)
}

// FormatDateJA renders a provider timestamp as a JST calendar date. Values
// that do not parse are returned unchanged.
func FormatDateJA(publishedAt string) string {
	t := (&article.Article{PublishedAt: publishedAt}).PublishedTime()
	if t.IsZero() {
		return publishedAt
	}
	return t.In(JST).Format(issueDateLayout)
}

type articleView struct {
	Title              string
	DisplayTitle       string
	Summary            string
	URL                string
	Source             string
	PublishedFormatted string
	Category           article.Category
	CategoryLabel      string
}

type reportData struct {
	Articles       []articleView
	IssueDate      string
	PeriodStart    string
	PeriodEnd      string
	Year           int
	CategoryCounts []article.CategoryCount
	TotalArticles  int
}

type issueView struct {
	Filename string
	Label    string
}

type indexData struct {
	Issues []issueView
	Year   int
}

// Renderer writes report files into one output directory.
type Renderer struct {
	dir string
	log logger.Logger
}

func NewRenderer(dir string, log logger.Logger) *Renderer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Renderer{dir: dir, log: log}
}

// Dir returns the output directory.
func (r *Renderer) Dir() string {
	return r.dir
}

// Render writes weekly-news-YYYY-MM-DD.html for the JST date of now and
// refreshes the archive index.
func (r *Renderer) Render(articles []*article.Article, now time.Time) (*Report, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("report: create %s: %w", r.dir, err)
	}

	nowJST := now.In(JST)
	data := reportData{
		Articles:       make([]articleView, 0, len(articles)),
		IssueDate:      IssueDate(now),
		PeriodStart:    nowJST.AddDate(0, 0, -7).Format(periodLayout),
		PeriodEnd:      nowJST.Format(periodLayout),
		Year:           nowJST.Year(),
		CategoryCounts: article.CountCategories(articles),
		TotalArticles:  len(articles),
	}
	for _, a := range articles {
		summary := a.SummaryTranslated
		if summary == "" {
			summary = a.Description
		}
		data.Articles = append(data.Articles, articleView{
			Title:              a.Title,
			DisplayTitle:       a.DisplayTitle(),
			Summary:            summary,
			URL:                a.URL,
			Source:             a.Source,
			PublishedFormatted: FormatDateJA(a.PublishedAt),
			Category:           a.Category,
			CategoryLabel:      a.Category.Label(),
		})
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "weekly_report.html", data); err != nil {
		return nil, fmt.Errorf("report: render: %w", err)
	}

	rep := &Report{
		Filename:  Filename(now),
		IssueDate: data.IssueDate,
	}
	rep.Path = filepath.Join(r.dir, rep.Filename)
	if err := os.WriteFile(rep.Path, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("report: write %s: %w", rep.Path, err)
	}
	r.log.Info("Report written",
		logger.String("path", rep.Path),
		logger.Int("articles", len(articles)),
	)

	if err := r.UpdateIndex(now); err != nil {
		return nil, err
	}
	return rep, nil
}

// UpdateIndex rewrites index.html with every report in the directory, newest
// first. Without any report the index is left alone.
func (r *Renderer) UpdateIndex(now time.Time) error {
	files, err := filepath.Glob(filepath.Join(r.dir, reportPrefix+"*"+reportExt))
	if err != nil {
		return fmt.Errorf("report: list reports: %w", err)
	}
	if len(files) == 0 {
		r.log.Info("No reports found, skipping index", logger.String("dir", r.dir))
		return nil
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	data := indexData{Year: now.In(JST).Year()}
	for _, name := range names {
		data.Issues = append(data.Issues, issueView{Filename: name, Label: issueLabel(name)})
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		return fmt.Errorf("report: render index: %w", err)
	}
	path := filepath.Join(r.dir, indexFile)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	r.log.Info("Index updated", logger.String("path", path), logger.Int("reports", len(names)))
	return nil
}

func issueLabel(filename string) string {
	stem := strings.TrimSuffix(strings.TrimPrefix(filename, reportPrefix), reportExt)
	t, err := time.Parse(fileDateLayout, stem)
	if err != nil {
		return stem
	}
	return t.Format(issueDateLayout) + "号"
}

// SaveJSON writes articles-YYYY-MM-DD.json next to the reports and returns its
// path.
func (r *Renderer) SaveJSON(articles []*article.Article, now time.Time) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("report: create %s: %w", r.dir, err)
	}
	if articles == nil {
		articles = []*article.Article{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(articles); err != nil {
		return "", fmt.Errorf("report: encode articles: %w", err)
	}

	path := filepath.Join(r.dir, "articles-"+now.In(JST).Format(fileDateLayout)+".json")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("report: write %s: %w", path, err)
	}
	r.log.Info("Articles saved", logger.String("path", path))
	return path, nil
}
