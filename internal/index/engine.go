package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// ErrNotOpen is returned by Acquire before the index exists on disk and has
// been opened.
var ErrNotOpen = errors.New("index not open")

// Engine owns the Bleve index lifecycle. The live index is published as a
// reference-counted epoch: readers acquire a handle per search and release it
// when done, and a superseded epoch closes its index only once every handle
// has been released. Writers go through OpenForWrite, which creates the index
// on first use.
type Engine struct {
	path    string
	mapping mapping.IndexMapping

	mu      sync.Mutex
	current *epoch

	// generation counts committed writes; the reader's refresh loop watches
	// it to decide when to republish its snapshot.
	generation atomic.Uint64
}

// NewEngine creates an engine for the index at path. The index is not opened
// until the first write or a successful TryOpen.
func NewEngine(path string, synonymRules []string) (*Engine, error) {
	indexMapping, err := CreateIndexMapping(synonymRules)
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	return &Engine{
		path:    path,
		mapping: indexMapping,
	}, nil
}

// Path returns the index storage location.
func (e *Engine) Path() string {
	return e.path
}

// Exists reports whether the index directory is present on disk.
func (e *Engine) Exists() bool {
	_, err := os.Stat(e.path)
	return err == nil
}

// OpenForWrite opens the index, creating it if it does not exist yet.
func (e *Engine) OpenForWrite() (bleve.Index, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil {
		return e.current.idx, nil
	}

	idx, err := e.open(true)
	if err != nil {
		return nil, err
	}
	e.current = newEpoch(idx)
	return idx, nil
}

// TryOpen opens the index if it already exists on disk. It returns false
// without error when there is nothing to open yet, so callers can poll.
func (e *Engine) TryOpen() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil {
		return true, nil
	}
	if !e.Exists() {
		return false, nil
	}

	idx, err := e.open(false)
	if err != nil {
		return false, err
	}
	e.current = newEpoch(idx)
	return true, nil
}

// open opens or creates the underlying Bleve index. Corrupted indexes are
// cleared and recreated rather than failing permanently.
func (e *Engine) open(create bool) (bleve.Index, error) {
	if err := validateIndexIntegrity(e.path); err != nil {
		slog.Warn("Index corrupted, clearing", "path", e.path, "error", err)
		if removeErr := os.RemoveAll(e.path); removeErr != nil {
			return nil, fmt.Errorf("index corrupted at %s and cannot be removed: %w", e.path, removeErr)
		}
	}

	idx, err := bleve.Open(e.path)
	if err == nil {
		return idx, nil
	}
	if !errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	if !create {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	if dir := filepath.Dir(e.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create index parent directory: %w", err)
		}
	}

	idx, err = bleve.New(e.path, e.mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return idx, nil
}

// Acquire returns a handle on the current epoch for query use. The caller
// must Release it when the query completes.
func (e *Engine) Acquire() (*Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil, ErrNotOpen
	}
	e.current.acquire()
	return &Handle{ep: e.current}, nil
}

// Generation returns the committed-write counter.
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

// bumpGeneration records one committed write.
func (e *Engine) bumpGeneration() {
	e.generation.Add(1)
}

// DocCount returns the number of documents in the index, or 0 if the index
// is not open.
func (e *Engine) DocCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return 0
	}
	count, err := e.current.idx.DocCount()
	if err != nil {
		return 0
	}
	return count
}

// Close retires the current epoch. The underlying index closes once all
// outstanding handles are released.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil
	}
	err := e.current.retire()
	e.current = nil
	return err
}

// Handle is a borrowed reference to an index epoch.
type Handle struct {
	ep *epoch

	releaseOnce sync.Once
}

// Index returns the Bleve index for this handle.
func (h *Handle) Index() bleve.Index {
	return h.ep.idx
}

// Release returns the handle. Releasing twice is a no-op.
func (h *Handle) Release() {
	h.releaseOnce.Do(func() { h.ep.release() })
}

// epoch is one published lifetime of an open Bleve index. Closing is
// deferred until the epoch is retired and every acquired reference has been
// released, so an in-flight search never observes a closed index.
type epoch struct {
	idx bleve.Index

	mu      sync.Mutex
	refs    int
	retired bool
	closed  bool
}

func newEpoch(idx bleve.Index) *epoch {
	return &epoch{idx: idx}
}

func (ep *epoch) acquire() {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.refs++
}

func (ep *epoch) release() {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.refs--
	if ep.retired && ep.refs == 0 && !ep.closed {
		ep.closed = true
		if err := ep.idx.Close(); err != nil {
			slog.Error("Failed to close index epoch", "error", err)
		}
	}
}

func (ep *epoch) retire() error {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.retired = true
	if ep.refs == 0 && !ep.closed {
		ep.closed = true
		return ep.idx.Close()
	}
	return nil
}

// validateIndexIntegrity checks that an existing index directory has a sane
// metadata file before Bleve opens it. Returns nil when the index does not
// exist yet.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}

	return nil
}
