package domain

// IndexDocument is the unit of ingestion. Producers publish it as JSON in the
// "doc" field of a stream message; the writer enriches it with derived fields
// before it reaches the index.
type IndexDocument struct {
	// ID is the stable unique key for the document. An upsert with an
	// existing ID replaces the prior document.
	ID string `json:"id"`

	// Repo is the repository identifier, e.g. "spring-petclinic".
	Repo string `json:"repo"`

	// Path is the file path used for retrieval and snippet lookup.
	Path string `json:"path"`

	// Code is the full source text.
	Code string `json:"code"`

	// Lang is the language tag, e.g. "java", "go".
	Lang string `json:"lang"`

	// Hash is the content fingerprint used for change detection. Two writes
	// with the same ID and Hash must not produce a second index mutation.
	Hash string `json:"hash"`

	// Symbols is derived at write time: identifier-bearing text with
	// punctuation stripped and common keywords removed. Never on the wire.
	Symbols string `json:"-"`

	// IsController and HasMapping are structural signals detected from Code
	// at write time. Never on the wire.
	IsController bool `json:"-"`
	HasMapping   bool `json:"-"`
}

// Bleve field name constants for consistent field references in mappings and queries.
const (
	FieldID           = "id"
	FieldRepo         = "repo"
	FieldPath         = "path"
	FieldCode         = "code"
	FieldLang         = "lang"
	FieldHash         = "hash"
	FieldSymbols      = "symbols"
	FieldIsController = "is_controller"
	FieldHasMapping   = "has_mapping"
)

// Intent classifies what a raw query string is most likely asking for.
type Intent string

const (
	// IntentEndpoint means the query looks like an HTTP endpoint or
	// controller lookup.
	IntentEndpoint Intent = "endpoint"

	// IntentRepository means the query looks like a repository-name lookup.
	IntentRepository Intent = "repository"

	// IntentCode is the default: a free-form code search.
	IntentCode Intent = "code"
)

// SearchCursor is the opaque search-after pagination cursor. Both values are
// sort-key strings taken from the candidate ordering of the previous page's
// last entry. The zero value means "first page".
type SearchCursor struct {
	LastScore string `json:"lastScore"`
	LastDoc   string `json:"lastDoc"`
}

// IsZero reports whether the cursor denotes the first page.
func (c SearchCursor) IsZero() bool {
	return c.LastScore == "" && c.LastDoc == ""
}

// RankSignals are per-candidate signals computed fresh at query time and fed
// to the reranker. They are never persisted.
type RankSignals struct {
	IsController bool
	HasMapping   bool
	IsTest       bool
	IsConfig     bool

	// RepoFrequency counts how many earlier candidates in this result set
	// came from the same repository. Drives diversity decay.
	RepoFrequency int
}

// SearchResult is one entry of a result page.
type SearchResult struct {
	Path    string  `json:"path"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet,omitempty"`
	Repo    string  `json:"repo"`

	// Hash is an internal correlation key for the explain-by-hash
	// diagnostic. It is never serialized to clients.
	Hash string `json:"-"`
}

// SearchPage is a cursor-paginated search response.
type SearchPage struct {
	Results   []SearchResult
	Cursor    *SearchCursor
	TotalHits uint64
	PageSize  int
}
