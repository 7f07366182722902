// Package cli provides output formatting for the promptrepo command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/promptrepo/internal/models"
	"github.com/hyperjump/promptrepo/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// FormatFromFlag maps the --json flag to an output format.
func FormatFromFlag(asJSON bool) OutputFormat {
	if asJSON {
		return OutputJSON
	}
	return OutputText
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms (%s)\n\n", response.Total, response.QueryTime, response.Mode)
	if response.Mode == models.ModeFallback {
		fmt.Fprintln(w, "Semantic search unavailable; showing substring matches.")
		fmt.Fprintln(w)
	}
	for _, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		if response.Mode == models.ModeFallback {
			fmt.Fprintf(w, "Rank: %d\n", result.Rank)
		} else {
			fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", result.Rank, result.Score)
		}
		writePromptText(w, result.Prompt)
	}
	return nil
}

// WritePrompt writes a single prompt to w in the given format.
func WritePrompt(w io.Writer, p *models.Prompt, status *models.IndexStatus, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, map[string]interface{}{"prompt": p, "index": status})
	}
	writePromptText(w, p)
	if status != nil {
		fmt.Fprintf(w, "Vector index: %s", status.Vector)
		if status.Error != "" {
			fmt.Fprintf(w, " (%s)", status.Error)
		}
		fmt.Fprintln(w)
		if status.FallbackError != "" {
			fmt.Fprintf(w, "Text index: %s (%s)\n", status.Fallback, status.FallbackError)
		}
	}
	return nil
}

func writePromptText(w io.Writer, p *models.Prompt) {
	fmt.Fprintf(w, "ID: %s\n", p.ID)
	fmt.Fprintf(w, "Title: %s\n", p.Title)
	if p.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", p.Description)
	}
	if len(p.ToolUsed) > 0 {
		fmt.Fprintf(w, "Tools: %s\n", strings.Join(p.ToolUsed, ", "))
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(p.Tags, ", "))
	}
	if p.Username != "" {
		fmt.Fprintf(w, "By: %s\n", p.Username)
	}
	fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(utils.OneLine(p.PromptText), 200))
}

// WriteKeyValues writes label/value rows aligned on the label column.
func WriteKeyValues(w io.Writer, rows [][2]string) {
	width := 0
	for _, r := range rows {
		if len(r[0]) > width {
			width = len(r[0])
		}
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%-*s  %s\n", width+1, r[0]+":", r[1])
	}
}

// FormatBytes renders n as a human-readable size.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
