package publisher

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
)

const stdoutWidth = 72

// StdoutPublisher prints the notification to a terminal.
type StdoutPublisher struct {
	out io.Writer
}

func NewStdoutPublisher() *StdoutPublisher {
	return &StdoutPublisher{out: os.Stdout}
}

func (p *StdoutPublisher) Name() string { return "stdout" }

func (p *StdoutPublisher) Publish(_ context.Context, n *Notification) error {
	w := p.out
	rule := strings.Repeat("=", stdoutWidth)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, Subject(n))
	fmt.Fprintln(w, rule)
	if summary := CategorySummary(n.Articles); summary != "" {
		fmt.Fprintln(w, summary)
		fmt.Fprintln(w)
	}

	for i, a := range n.Articles {
		fmt.Fprintln(w, strings.Repeat("-", stdoutWidth))
		// Titles are mostly Japanese, so width is counted in terminal cells.
		fmt.Fprintln(w, runewidth.Truncate(fmt.Sprintf("%d. %s", i+1, a.DisplayTitle()), stdoutWidth, "…"))
		fmt.Fprintf(w, "   %s | %s\n", a.Category.Label(), a.Source)
		fmt.Fprintf(w, "   %s\n", a.URL)
		if a.SummaryTranslated != "" {
			fmt.Fprintf(w, "   %s\n", a.SummaryTranslated)
		}
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "レポート: %s\n", n.ReportURL)
	if n.IndexURL != "" {
		fmt.Fprintf(w, "過去のレポート一覧: %s\n", n.IndexURL)
	}
	return nil
}
