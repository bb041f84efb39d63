// Package cli provides output formatting for the Kioku command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/rag"
	"github.com/hyperjump/kioku/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat converts a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteSearchResults writes semantic search results to w in the given format.
func WriteSearchResults(w io.Writer, results []rag.SearchResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, results)
	}
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return nil
	}
	fmt.Fprintf(w, "\nFound %d documents\n\n", len(results))
	for i, res := range results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, res.Score)
		fmt.Fprintf(w, "ID: %s\n", res.DocumentID)
		if res.Title != "" {
			fmt.Fprintf(w, "Title: %s\n", res.Title)
		}
		for _, chunk := range res.Chunks {
			fmt.Fprintf(w, "\n  [chunk %d, %.4f] %s\n", chunk.ChunkIndex, chunk.Similarity, utils.Truncate(chunk.Text, 200))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteDocuments writes a document listing to w in the given format.
// Content is elided in text output; only metadata is shown.
func WriteDocuments(w io.Writer, docs []*models.Document, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents.")
		return nil
	}
	for _, doc := range docs {
		indexed := " "
		if doc.Indexed {
			indexed = "*"
		}
		fmt.Fprintf(w, "%s %-36s  %-10s  %7d bytes  %s\n", indexed, doc.ID, doc.Status, doc.Size, doc.Title)
	}
	return nil
}

// WriteAgents writes an agent listing to w in the given format.
func WriteAgents(w io.Writer, agents []*models.Agent, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, agents)
	}
	if len(agents) == 0 {
		fmt.Fprintln(w, "No active agents.")
		return nil
	}
	for _, a := range agents {
		fmt.Fprintf(w, "%-36s  usage=%-5d  %s\n", a.ID, a.Usage, a.Name)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
