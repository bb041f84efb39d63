package store

import (
	"strings"
	"testing"

	"github.com/hyperjump/kioku/internal/models"
)

func TestValidateDocument(t *testing.T) {
	valid := func() *models.Document {
		return &models.Document{Title: "t", Content: "c", ContentType: "text/plain"}
	}
	cases := []struct {
		name      string
		mutate    func(*models.Document)
		wantField string
	}{
		{"valid", func(d *models.Document) {}, ""},
		{"emptyContentType", func(d *models.Document) { d.ContentType = "" }, ""},
		{"missingTitle", func(d *models.Document) { d.Title = "" }, "title"},
		{"missingContent", func(d *models.Document) { d.Content = "" }, "content"},
		{"oversized", func(d *models.Document) { d.Content = strings.Repeat("x", MaxDocumentBytes+1) }, "content"},
		{"badContentType", func(d *models.Document) { d.ContentType = "video/mp4" }, "contentType"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := valid()
			tc.mutate(doc)
			checkValidation(t, ValidateDocument(doc), tc.wantField)
		})
	}

	if ValidateDocument(nil) == nil {
		t.Error("nil document accepted")
	}
}

func TestValidateEmbedding(t *testing.T) {
	valid := func() *models.Embedding {
		return &models.Embedding{
			DocumentID: "d",
			ChunkIndex: 0,
			Text:       "chunk",
			Vector:     make([]float32, models.EmbeddingDimensions),
		}
	}
	cases := []struct {
		name      string
		mutate    func(*models.Embedding)
		wantField string
	}{
		{"valid", func(e *models.Embedding) {}, ""},
		{"missingDocumentID", func(e *models.Embedding) { e.DocumentID = "" }, "documentId"},
		{"negativeChunkIndex", func(e *models.Embedding) { e.ChunkIndex = -1 }, "chunkIndex"},
		{"shortVector", func(e *models.Embedding) { e.Vector = e.Vector[:383] }, "vector"},
		{"longVector", func(e *models.Embedding) { e.Vector = make([]float32, 385) }, "vector"},
		{"oversizedText", func(e *models.Embedding) { e.Text = strings.Repeat("x", MaxEmbeddingTextChars+1) }, "text"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := valid()
			tc.mutate(e)
			checkValidation(t, ValidateEmbedding(e), tc.wantField)
		})
	}
}

func TestValidateAgent(t *testing.T) {
	cases := []struct {
		name      string
		agent     *models.Agent
		wantField string
	}{
		{"valid", &models.Agent{Name: "a", SystemPrompt: "p"}, ""},
		{"missingName", &models.Agent{}, "name"},
		{"longName", &models.Agent{Name: strings.Repeat("n", MaxAgentNameChars+1)}, "name"},
		{"longPrompt", &models.Agent{Name: "a", SystemPrompt: strings.Repeat("p", MaxSystemPromptChars+1)}, "systemPrompt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			checkValidation(t, ValidateAgent(tc.agent), tc.wantField)
		})
	}
}

func TestValidateSettings(t *testing.T) {
	cases := []struct {
		name      string
		mutate    func(*models.Settings)
		wantField string
	}{
		{"valid", func(s *models.Settings) {}, ""},
		{"wrongID", func(s *models.Settings) { s.ID = "other" }, "_id"},
		{"zeroChunkSize", func(s *models.Settings) { s.RAG.ChunkSize = 0 }, "rag.chunkSize"},
		{"negativeOverlap", func(s *models.Settings) { s.RAG.ChunkOverlap = -1 }, "rag.chunkOverlap"},
		{"overlapAtSize", func(s *models.Settings) { s.RAG.ChunkOverlap = s.RAG.ChunkSize }, "rag.chunkOverlap"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := models.DefaultSettings()
			tc.mutate(s)
			checkValidation(t, ValidateSettings(s), tc.wantField)
		})
	}
}

func checkValidation(t *testing.T, err error, wantField string) {
	t.Helper()
	if wantField == "" {
		if vErr, ok := err.(*ValidationError); ok && vErr.Field != "" {
			t.Errorf("unexpected validation error: %v", err)
		}
		return
	}
	vErr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("want ValidationError on %s, got %v", wantField, err)
	}
	if vErr.Field != wantField {
		t.Errorf("field: %s, want %s", vErr.Field, wantField)
	}
}
