package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/dcse/searchd/internal/domain"
)

// Explain is a relevance-debugging diagnostic: it re-runs the plain
// multi-field parse of the query (without the boost composition), scans a
// bounded number of top hits for a document with the given content hash, and
// returns the engine's scoring explanation for it.
func (e *Engine) Explain(ctx context.Context, q, hash string) (string, error) {
	handle, err := e.reader.Acquire()
	if err != nil {
		return "", err
	}
	defer handle.Release()

	req := bleve.NewSearchRequest(MultiFieldQuery(q))
	req.Size = e.settings.ExplainScanLimit
	req.Fields = []string{domain.FieldHash}
	req.Explain = true

	res, err := handle.Index().SearchInContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("explain search failed: %w", err)
	}

	for _, hit := range res.Hits {
		if stringField(hit, domain.FieldHash) != hash {
			continue
		}
		if hit.Expl == nil {
			break
		}
		rendered, err := json.MarshalIndent(hit.Expl, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to render explanation: %w", err)
		}
		return string(rendered), nil
	}

	return fmt.Sprintf("No matching document found for hash: %s", hash), nil
}
