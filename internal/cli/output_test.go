package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/rag"
)

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != OutputText {
		t.Errorf("empty: %v %v", f, err)
	}
	if f, err := ParseFormat("json"); err != nil || f != OutputJSON {
		t.Errorf("json: %v %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	results := []rag.SearchResult{
		{
			DocumentID: "doc-1",
			Title:      "Notes",
			Score:      0.91,
			Chunks: []rag.ChunkMatch{
				{ChunkIndex: 0, Text: "chunk text here", Similarity: 0.91},
			},
		},
	}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, results, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "doc-1") || !strings.Contains(out, "Notes") {
		t.Errorf("output missing fields: %s", out)
	}
}

func TestWriteSearchResults_json(t *testing.T) {
	results := []rag.SearchResult{{DocumentID: "doc-1", Score: 0.5}}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, results, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded []rag.SearchResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].DocumentID != "doc-1" {
		t.Errorf("round trip: %v", decoded)
	}
}

func TestWriteSearchResults_empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No results") {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteDocuments(t *testing.T) {
	docs := []*models.Document{
		{ID: "d1", Title: "First", Status: models.StatusCompleted, Size: 42, Indexed: true},
	}
	var buf bytes.Buffer
	if err := WriteDocuments(&buf, docs, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "First") {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteAgents(t *testing.T) {
	agents := []*models.Agent{{ID: "a1", Name: "Helper", Usage: 3}}
	var buf bytes.Buffer
	if err := WriteAgents(&buf, agents, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Helper") {
		t.Errorf("got %q", buf.String())
	}
}
