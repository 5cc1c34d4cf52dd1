// Package cli renders command output for the tansaku CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/tansaku/internal/ingest"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// OutputFormat selects how search results are rendered.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one result per line.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputCompact, OutputJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

// WriteSearchResults writes a search response to w in the given format.
func WriteSearchResults(w io.Writer, resp *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case OutputCompact:
		for i, hit := range resp.Hits {
			fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n",
				i+1, hit.Score, hit.Document.ID, utils.Truncate(oneLine(hit.Document.Content), 120))
		}
		return nil
	default:
		writeText(w, resp)
		return nil
	}
}

func writeText(w io.Writer, resp *models.SearchResponse) {
	fmt.Fprintf(w, "\n%d result(s) for %q\n\n", resp.Total, resp.Query)
	for i, hit := range resp.Hits {
		fmt.Fprintf(w, "─────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, hit.Score)
		fmt.Fprintf(w, "ID: %s\n", hit.Document.ID)
		if src := hit.Document.Metadata["source"]; src != "" {
			fmt.Fprintf(w, "Source: %s\n", src)
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(hit.Document.Content, 300))
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// WriteProgress renders one ingestion progress event as a single
// status line.
func WriteProgress(w io.Writer, ev ingest.ProgressEvent) {
	switch ev.Stage {
	case ingest.StageScanning:
		fmt.Fprintf(w, "\rscanning... %d files found", ev.Total)
	case ingest.StageIndexing:
		fmt.Fprintf(w, "\rindexing %d/%d", ev.Processed, ev.Total)
	case ingest.StageDone:
		fmt.Fprintf(w, "\rdone: %d/%d files\n", ev.Processed, ev.Total)
	case ingest.StageFailed:
		fmt.Fprintf(w, "\rfailed after %d/%d files\n", ev.Processed, ev.Total)
	}
}

// WriteOutcome summarizes a finished ingestion, listing failures.
func WriteOutcome(w io.Writer, outcome ingest.Outcome) {
	fmt.Fprintf(w, "ingested %d/%d files\n", outcome.Succeeded, outcome.Attempted)
	for _, f := range outcome.Failures {
		fmt.Fprintf(w, "  failed: %s: %v\n", f.Path, f.Err)
	}
}
