package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/blevesearch/bleve/v2"
	bsearch "github.com/blevesearch/bleve/v2/search"
	"github.com/dcse/searchd/internal/config"
	"github.com/dcse/searchd/internal/domain"
)

// Engine executes the two-phase candidate-fetch / rerank / paginate search
// pipeline against the reader's live snapshot.
type Engine struct {
	reader   *Reader
	settings config.SearchSettings
}

// NewEngine creates a search engine over the given reader.
func NewEngine(reader *Reader, settings config.SearchSettings) *Engine {
	return &Engine{
		reader:   reader,
		settings: settings,
	}
}

// Search runs one query. pageSize <= 0 falls back to the configured default.
// Returns ErrNotReady until the reader has a snapshot. A phase-1 timeout
// degrades to whatever the engine accumulated instead of failing the request.
func (e *Engine) Search(ctx context.Context, q string, pageSize int, cursor domain.SearchCursor) (domain.SearchPage, error) {
	if pageSize <= 0 {
		pageSize = e.settings.DefaultPageSize
	}
	if pageSize > e.settings.CandidatePool {
		pageSize = e.settings.CandidatePool
	}

	handle, err := e.reader.Acquire()
	if err != nil {
		return domain.SearchPage{}, err
	}
	defer handle.Release()

	intent := Classify(q)

	// Phase 1: candidate fetch over a pool larger than the page, with
	// search-after continuation against the phase-1 sort order.
	req := bleve.NewSearchRequest(BuildQuery(q, intent))
	req.Size = e.settings.CandidatePool
	req.Fields = []string{
		domain.FieldPath, domain.FieldRepo, domain.FieldHash,
		domain.FieldCode, domain.FieldIsController, domain.FieldHasMapping,
	}
	req.SortBy([]string{"-_score", "_id"})
	if !cursor.IsZero() {
		req.SearchAfter = []string{cursor.LastScore, cursor.LastDoc}
	}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField(domain.FieldCode)

	fetchCtx, cancel := context.WithTimeout(ctx, e.settings.Timeout)
	defer cancel()

	res, err := handle.Index().SearchInContext(fetchCtx, req)
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			return domain.SearchPage{}, fmt.Errorf("search failed: %w", err)
		}
		slog.Warn("Search timeout, returning partial results", "query", q)
	}
	if res == nil || len(res.Hits) == 0 {
		return domain.SearchPage{PageSize: pageSize}, nil
	}

	// Phase 2: rerank in candidate order, then stable sort by adjusted
	// score so ties keep their phase-1 relative order.
	repoSeen := make(map[string]int)
	reranked := make([]domain.SearchResult, 0, len(res.Hits))

	for _, hit := range res.Hits {
		path := stringField(hit, domain.FieldPath)
		repo := stringField(hit, domain.FieldRepo)

		signals := domain.RankSignals{
			IsController:  boolField(hit, domain.FieldIsController),
			HasMapping:    boolField(hit, domain.FieldHasMapping),
			IsTest:        IsTestPath(path),
			IsConfig:      IsConfigPath(path),
			RepoFrequency: repoSeen[repo],
		}
		repoSeen[repo]++

		reranked = append(reranked, domain.SearchResult{
			Path:    path,
			Score:   Rerank(hit.Score, signals, intent, path),
			Snippet: BuildSnippet(hit.Fragments[domain.FieldCode], path, stringField(hit, domain.FieldCode)),
			Repo:    repo,
			Hash:    stringField(hit, domain.FieldHash),
		})
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})
	if len(reranked) > pageSize {
		reranked = reranked[:pageSize]
	}

	return domain.SearchPage{
		Results:   reranked,
		Cursor:    nextCursor(res.Hits, pageSize),
		TotalHits: res.Total,
		PageSize:  pageSize,
	}, nil
}

// nextCursor derives the continuation cursor from the phase-1 candidate
// ordering at the page boundary. Search-after keys are only coherent against
// that ordering, so pagination is approximate with respect to the reranked
// page contents.
func nextCursor(hits []*bsearch.DocumentMatch, pageSize int) *domain.SearchCursor {
	idx := pageSize
	if idx > len(hits) {
		idx = len(hits)
	}
	idx--
	if idx < 0 {
		return nil
	}

	hit := hits[idx]
	if len(hit.Sort) < 2 {
		return nil
	}
	return &domain.SearchCursor{
		LastScore: hit.Sort[0],
		LastDoc:   hit.Sort[1],
	}
}

func stringField(hit *bsearch.DocumentMatch, field string) string {
	s, _ := hit.Fields[field].(string)
	return s
}

func boolField(hit *bsearch.DocumentMatch, field string) bool {
	switch v := hit.Fields[field].(type) {
	case bool:
		return v
	case string:
		return v == "T" || v == "true"
	default:
		return false
	}
}
