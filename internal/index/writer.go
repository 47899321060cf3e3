package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/dcse/searchd/internal/domain"
)

// WriteStatus reports the outcome of an upsert.
type WriteStatus int

const (
	// StatusWritten means the document was indexed (new or replaced).
	StatusWritten WriteStatus = iota

	// StatusSkipped means the stored hash matched and no write happened.
	StatusSkipped
)

// String returns the status name.
func (s WriteStatus) String() string {
	if s == StatusSkipped {
		return "skipped"
	}
	return "written"
}

// storedDocument is the field-typed document handed to Bleve. It carries the
// derived fields that are never on the ingestion wire.
type storedDocument struct {
	ID           string `json:"id"`
	Repo         string `json:"repo"`
	Path         string `json:"path"`
	Code         string `json:"code"`
	Lang         string `json:"lang"`
	Hash         string `json:"hash"`
	Symbols      string `json:"symbols"`
	IsController bool   `json:"is_controller"`
	HasMapping   bool   `json:"has_mapping"`
}

// Writer performs idempotent, hash-deduplicated index updates. Upserts are
// serialized across all callers: the index has exactly one logical writer.
// The writer never retries; a failed write propagates to the caller, and
// retry policy lives with the stream consumer via non-acknowledgment.
type Writer struct {
	engine *Engine
	mu     sync.Mutex
}

// NewWriter creates a writer over the given engine.
func NewWriter(engine *Engine) *Writer {
	return &Writer{engine: engine}
}

// Upsert indexes doc, replacing any prior document with the same ID. When the
// stored hash for the ID equals the incoming hash the index is left untouched
// and StatusSkipped is returned. Each write is committed before Upsert returns.
func (w *Writer) Upsert(ctx context.Context, doc domain.IndexDocument) (WriteStatus, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx, err := w.engine.OpenForWrite()
	if err != nil {
		return StatusWritten, fmt.Errorf("failed to open index for write: %w", err)
	}

	existing, err := w.existingHash(ctx, idx, doc.ID)
	if err != nil {
		return StatusWritten, fmt.Errorf("failed to look up existing document: %w", err)
	}
	if existing != "" && existing == doc.Hash {
		slog.Debug("Skipping unchanged document", "id", doc.ID, "path", doc.Path)
		return StatusSkipped, nil
	}

	stored := storedDocument{
		ID:      doc.ID,
		Repo:    doc.Repo,
		Path:    doc.Path,
		Code:    doc.Code,
		Lang:    doc.Lang,
		Hash:    doc.Hash,
		Symbols: ExtractSymbols(doc.Lang, doc.Code),
	}
	stored.IsController, stored.HasMapping = DetectStructuralSignals(doc.Code)

	// Index replaces by key atomically: a concurrent reader never observes
	// two documents with the same ID.
	if err := idx.Index(doc.ID, stored); err != nil {
		return StatusWritten, fmt.Errorf("failed to index document %s: %w", doc.ID, err)
	}

	w.engine.bumpGeneration()
	return StatusWritten, nil
}

// existingHash returns the stored hash for id, or "" if the document is not
// in the index.
func (w *Writer) existingHash(ctx context.Context, idx bleve.Index, id string) (string, error) {
	req := bleve.NewSearchRequest(query.NewDocIDQuery([]string{id}))
	req.Size = 1
	req.Fields = []string{domain.FieldHash}

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return "", err
	}
	if len(res.Hits) == 0 {
		return "", nil
	}
	hash, _ := res.Hits[0].Fields[domain.FieldHash].(string)
	return hash, nil
}
