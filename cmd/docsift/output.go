package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/xhad/docsift/internal/models"
	"github.com/xhad/docsift/pkg/capability"
)

const linePreviewWidth = 80

func sentimentColor(s *models.Sentiment) string {
	if s == nil {
		return color.New(color.Faint).Sprint("n/a")
	}
	switch *s {
	case models.SentimentPositive:
		return color.GreenString(string(*s))
	case models.SentimentNegative:
		return color.RedString(string(*s))
	default:
		return color.YellowString(string(*s))
	}
}

func printReport(w io.Writer, r *models.Report) {
	header := color.New(color.FgCyan, color.Bold).SprintFunc()
	label := color.New(color.Bold).SprintFunc()

	fmt.Fprintln(w, header("Report "+r.ID))
	fmt.Fprintf(w, "%s %s (%s)\n", label("File:"), r.Filename, r.FileType)
	fmt.Fprintf(w, "%s %s lines across %s pages\n", label("Content:"),
		humanize.Comma(int64(r.TotalLines)), humanize.Comma(int64(r.TotalPages)))
	fmt.Fprintf(w, "%s %s\n", label("Capabilities:"), availability(r.ModelsAvailable))

	if r.IndividualAnalysis != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, header("Lines"))
		for _, line := range r.IndividualAnalysis {
			fmt.Fprintf(w, "  p%-3d #%-4d %-8s %s\n", line.Location, line.LineNumber,
				sentimentColor(line.Sentiment), oneLine(line.Preview, linePreviewWidth))
			if len(line.Entities) > 0 {
				fmt.Fprintf(w, "             %s\n", color.MagentaString(entityList(line.Entities)))
			}
		}
	}

	if c := r.CombinedAnalysis; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, header("Document"))
		fmt.Fprintf(w, "%s %s characters\n", label("Length:"), humanize.Comma(int64(c.TotalTextLength)))
		if c.Language != nil {
			fmt.Fprintf(w, "%s %s\n", label("Language:"), *c.Language)
		}
		fmt.Fprintf(w, "%s %s %s\n", label("Sentiment:"), sentimentColor(c.OverallSentiment), distribution(c.SentimentDistribution))
		fmt.Fprintf(w, "%s %s\n", label("Summary:"), c.Summary)

		if len(c.TopEntities) > 0 {
			fmt.Fprintf(w, "%s (%d total)\n", label("Top entities:"), c.TotalEntities)
			for _, e := range c.TopEntities {
				fmt.Fprintf(w, "  %3d  %s %s\n", e.Count, e.Text, color.MagentaString(e.Label))
			}
		}
		if c.WordCloud != nil {
			fmt.Fprintf(w, "%s PNG, %s\n", label("Word cloud:"), humanize.Bytes(dataURISize(*c.WordCloud)))
		}
	}
}

func printStatus(w io.Writer, status map[string]capability.ModelStatus, ready bool) {
	names := make([]string, 0, len(status))
	for name := range status {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := status[name]
		mark := color.RedString("✗")
		model := "-"
		if s.Loaded {
			mark = color.GreenString("✓")
		}
		if s.Model != nil {
			model = *s.Model
		}
		fmt.Fprintf(w, "%s %-22s %s\n", mark, name, model)
	}

	if ready {
		color.New(color.FgGreen).Fprintln(w, "All models ready")
	}
}

func availability(m map[string]bool) string {
	var parts []string
	for _, name := range []string{capability.Sentiment, capability.Summary, capability.Entities} {
		if m[name] {
			parts = append(parts, color.GreenString(name))
		} else {
			parts = append(parts, color.New(color.Faint).Sprint(name))
		}
	}
	return strings.Join(parts, " ")
}

func distribution(d map[models.Sentiment]int) string {
	if len(d) == 0 {
		return ""
	}
	var parts []string
	for _, s := range models.SentimentLabels {
		if n, ok := d[s]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", s, n))
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func entityList(entities []models.Entity) string {
	parts := make([]string, len(entities))
	for i, e := range entities {
		parts[i] = e.Text + "/" + e.Label
	}
	return strings.Join(parts, ", ")
}

func oneLine(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

func dataURISize(uri string) uint64 {
	_, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return 0
	}
	return uint64(base64.StdEncoding.DecodedLen(len(payload)))
}
