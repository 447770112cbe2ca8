// Package cli provides output formatting for the policynav command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/orieg/edu-policy-navigator-sub001/internal/lookup"
	"github.com/orieg/edu-policy-navigator-sub001/internal/models"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
	// OutputCompact is one result per line, for piping into other tools.
	OutputCompact SearchOutputFormat = "compact"
)

// ParseOutputFormat maps a -output flag value to a SearchOutputFormat.
func ParseOutputFormat(s string) (SearchOutputFormat, error) {
	switch s {
	case "text", "":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	case "compact":
		return OutputCompact, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputCompact:
		for _, result := range response.Results {
			fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n", result.Rank, result.Score, result.ID, result.Document.Name())
		}
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
}

func writeOneResult(w io.Writer, result *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", result.Rank, result.Score)
	fmt.Fprintf(w, "ID: %s\n", result.ID)
	if name := result.Document.Name(); name != "" {
		fmt.Fprintf(w, "Name: %s\n", name)
	}
	fmt.Fprintf(w, "\n%s\n", Truncate(result.Text, 200))
	fmt.Fprintln(w)
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}

// WriteLookupResults writes name-lookup hits (and, when the hit list is
// empty, spelling suggestions) to w in the given format.
func WriteLookupResults(w io.Writer, results []*lookup.Result, suggestions []string, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"results":     results,
			"suggestions": suggestions,
			"total":       len(results),
		})
	case OutputCompact:
		for _, result := range results {
			fmt.Fprintf(w, "%.4f\t%s\t%s\n", result.Score, result.ID, result.Name)
		}
		return nil
	default:
		if len(results) == 0 {
			fmt.Fprintln(w, "No matches.")
			if len(suggestions) > 0 {
				fmt.Fprintf(w, "Did you mean: %s\n", strings.Join(suggestions, ", "))
			}
			return nil
		}
		fmt.Fprintf(w, "\nFound %d matches\n\n", len(results))
		for _, result := range results {
			fmt.Fprintf(w, "  %-40s %s (%.4f)\n", result.Name, result.ID, result.Score)
		}
		fmt.Fprintln(w)
		return nil
	}
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
