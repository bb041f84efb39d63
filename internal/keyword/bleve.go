package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/hyperjump/kioku/internal/models"
)

// indexedDocument is the subset of a document that goes into the keyword index.
// Full content lives in the document store; the index only needs searchable text.
type indexedDocument struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// If the path already exists, the existing index is opened and reused so that
// keyword search survives restarts without a full re-index.
// If you change the index mapping in code, remove the index directory to force a rebuild.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so queries match
	// exact words; English stemming maps e.g. "notes" and "noted" to the same
	// stem, which surprises users searching their own documents.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds or updates a document in the index, keyed by its id.
func (b *BleveIndex) Index(ctx context.Context, doc *models.Document) error {
	return b.index.Index(doc.ID, indexedDocument{Title: doc.Title, Content: doc.Content})
}

// Search runs a match query and returns up to limit results sorted by score.
// When opts is nil or TitleBoost <= 1, a single match over title+content is used.
// When opts.TitleBoost > 1, separate title and content queries are merged with
// additive scoring so documents matching in both fields rank highest.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	titleBoost := 1.0
	if opts != nil && opts.TitleBoost > 0 {
		titleBoost = opts.TitleBoost
	}
	if titleBoost <= 1.0 {
		return b.searchSingle(query, limit)
	}
	return b.searchWithTitleBoost(query, limit, titleBoost)
}

func (b *BleveIndex) searchSingle(query string, limit int) ([]*Result, error) {
	q := bleve.NewMatchQuery(query)
	search := bleve.NewSearchRequest(q)
	search.Size = limit
	results, err := b.index.Search(search)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Result{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

func (b *BleveIndex) searchWithTitleBoost(query string, limit int, titleBoost float64) ([]*Result, error) {
	// Request enough from each so the merged top "limit" is correct
	// (the same doc can appear in both lists).
	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}

	titleQuery := bleve.NewMatchQuery(query)
	titleQuery.SetField("title")
	contentQuery := bleve.NewMatchQuery(query)
	contentQuery.SetField("content")

	titleReq := bleve.NewSearchRequest(titleQuery)
	titleReq.Size = reqSize
	contentReq := bleve.NewSearchRequest(contentQuery)
	contentReq.Size = reqSize

	titleResults, err := b.index.Search(titleReq)
	if err != nil {
		return nil, fmt.Errorf("Bleve title search failed: %w", err)
	}
	contentResults, err := b.index.Search(contentReq)
	if err != nil {
		return nil, fmt.Errorf("Bleve content search failed: %w", err)
	}

	scores := make(map[string]float64)
	for _, hit := range titleResults.Hits {
		scores[hit.ID] += hit.Score * titleBoost
	}
	for _, hit := range contentResults.Hits {
		scores[hit.ID] += hit.Score
	}

	merged := make([]*Result, 0, len(scores))
	for id, score := range scores {
		merged = append(merged, &Result{ID: id, Score: score})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// Delete removes a document from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
