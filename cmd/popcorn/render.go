package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kalambet/popcorn/internal/pipeline"
	"github.com/kalambet/popcorn/internal/results"
)

const overviewWidth = 110

// formatResponse renders an assistant reply as a numbered list.
func formatResponse(resp pipeline.Response) string {
	var sb strings.Builder

	sb.WriteString(colorize(boldStyle, resp.Summary))
	if resp.Status != "" && resp.Status != pipeline.StatusOK {
		sb.WriteString(" " + colorize(warningStyle, "["+string(resp.Status)+"]"))
	}
	sb.WriteString("\n")

	for i, m := range resp.Movies {
		fmt.Fprintf(&sb, "%2d. %s", i+1, colorize(titleStyle, m.Title))
		if y := itemYear(m); y != "" {
			fmt.Fprintf(&sb, " (%s)", y)
		}
		if m.Rating > 0 {
			sb.WriteString("  " + colorize(ratingStyle, fmt.Sprintf("★ %.1f", m.Rating)))
		}
		sb.WriteString("\n")
		if m.Overview != "" {
			sb.WriteString("    " + colorize(dimStyle, truncate(m.Overview, overviewWidth)) + "\n")
		}
	}
	return sb.String()
}

func itemYear(m results.Item) string {
	if m.ReleaseDate == nil || len(*m.ReleaseDate) < 4 {
		return ""
	}
	return (*m.ReleaseDate)[:4]
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
