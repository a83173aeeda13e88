// Package render formats analysis results and history listings for the
// terminal. Width calculations go through go-runewidth so Cyrillic and other
// wide text stays aligned.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"habrsum/internal/analysis"
	"habrsum/internal/api"
)

const barWidth = 30

// HistoryTable renders the cached history page as an aligned table.
func HistoryTable(entries []api.HistoryEntry) string {
	if len(entries) == 0 {
		return "No analyses in history.\n"
	}

	headers := []string{"ID", "Title", "Created"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{fmt.Sprintf("%d", e.ID), e.Title, e.CreatedAt})
	}
	return table(headers, rows)
}

// RecentTable renders the public latest-articles listing.
func RecentTable(articles []api.RecentArticle) string {
	if len(articles) == 0 {
		return "No recent articles.\n"
	}

	headers := []string{"Title", "URL"}
	rows := make([][]string, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, []string{a.Title, a.URL})
	}
	return table(headers, rows)
}

// table renders rows under headers with width-aware column padding.
func table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		b.WriteString("\n")
	}

	writeRow(headers)
	for i, w := range widths {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(strings.Repeat("-", w))
	}
	b.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}

// Job renders a completed analysis: title, summary, metrics, sentiment bars
// and comment clusters.
func Job(job *analysis.Job) string {
	var b strings.Builder

	if job.Title != "" {
		b.WriteString(job.Title + "\n")
		b.WriteString(strings.Repeat("=", runewidth.StringWidth(job.Title)) + "\n\n")
	}
	if job.Summary != "" {
		b.WriteString(job.Summary + "\n\n")
	}

	if len(job.Metrics) > 0 {
		b.WriteString("Metrics:\n")
		b.WriteString(Metrics(job.Metrics))
		b.WriteString("\n")
	}

	b.WriteString("Comment sentiment:\n")
	b.WriteString(SentimentBars(job.Sentiment))

	if len(job.Clusters) > 0 {
		b.WriteString("\nComment clusters:\n")
		b.WriteString(Clusters(job.Clusters))
	} else {
		b.WriteString("\nNo comments found.\n")
	}

	return b.String()
}

// SentimentBars renders proportional bars for the sentiment tallies.
func SentimentBars(counts analysis.SentimentCounts) string {
	rows := []struct {
		label string
		count int
	}{
		{"positive", counts.Positive},
		{"neutral", counts.Neutral},
		{"negative", counts.Negative},
	}

	max := 0
	for _, r := range rows {
		if r.count > max {
			max = r.count
		}
	}

	var b strings.Builder
	for _, r := range rows {
		bar := ""
		if max > 0 && r.count > 0 {
			n := r.count * barWidth / max
			if n == 0 {
				n = 1
			}
			bar = strings.Repeat("#", n)
		}
		fmt.Fprintf(&b, "  %s %s %d\n", runewidth.FillRight(r.label, 8), runewidth.FillRight(bar, barWidth), r.count)
	}
	return b.String()
}

// Clusters renders each keyword cluster with its comments.
func Clusters(clusters []analysis.Cluster) string {
	var b strings.Builder
	for _, c := range clusters {
		fmt.Fprintf(&b, "  [%s]\n", c.Key())
		for _, comment := range c.Comments {
			fmt.Fprintf(&b, "    - %s\n", comment)
		}
	}
	return b.String()
}

// Metrics renders named scores sorted by name.
func Metrics(metrics map[string]float64) string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	width := 0
	for _, name := range names {
		if w := runewidth.StringWidth(name); w > width {
			width = w
		}
	}

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "  %s %.4f\n", runewidth.FillRight(name, width), metrics[name])
	}
	return b.String()
}
