package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/dcse/searchd/internal/consumer"
	"github.com/dcse/searchd/internal/domain"
	"github.com/dcse/searchd/internal/index"
	"github.com/dcse/searchd/internal/search"
	"github.com/gofiber/fiber/v3"
)

// searchResponse is the JSON shape of one search page. The cursor fields are
// present only when a further page may exist.
type searchResponse struct {
	Results   []domain.SearchResult `json:"results"`
	LastDoc   string                `json:"lastDoc,omitempty"`
	LastScore string                `json:"lastScore,omitempty"`
	TotalHits uint64                `json:"totalHits"`
	PageSize  int                   `json:"pageSize"`
}

// SearchHandler serves the search and explain endpoints.
type SearchHandler struct {
	engine          *search.Engine
	defaultPageSize int
}

// NewSearchHandler creates a search handler.
func NewSearchHandler(engine *search.Engine, defaultPageSize int) *SearchHandler {
	return &SearchHandler{
		engine:          engine,
		defaultPageSize: defaultPageSize,
	}
}

// Search handles GET /search.
func (h *SearchHandler) Search(c fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query cannot be empty"})
	}

	n, err := strconv.Atoi(c.Query("n", strconv.Itoa(h.defaultPageSize)))
	if err != nil || n <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "n must be a positive integer"})
	}

	cursor := domain.SearchCursor{
		LastDoc:   c.Query("lastDoc"),
		LastScore: c.Query("lastScore"),
	}

	page, err := h.engine.Search(c.Context(), q, n, cursor)
	if err != nil {
		if errors.Is(err, search.ErrNotReady) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "index not ready"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	resp := searchResponse{
		Results:   page.Results,
		TotalHits: page.TotalHits,
		PageSize:  page.PageSize,
	}
	if resp.Results == nil {
		resp.Results = []domain.SearchResult{}
	}
	if page.Cursor != nil {
		resp.LastDoc = page.Cursor.LastDoc
		resp.LastScore = page.Cursor.LastScore
	}
	return c.JSON(resp)
}

// Explain handles GET /search/explain.
func (h *SearchHandler) Explain(c fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	hash := strings.TrimSpace(c.Query("hash"))
	if q == "" || hash == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "q and hash are required"})
	}

	text, err := h.engine.Explain(c.Context(), q, hash)
	if err != nil {
		if errors.Is(err, search.ErrNotReady) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "index not ready"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(text)
}

// HealthHandler reports broker connectivity, pending work, and index size.
type HealthHandler struct {
	consumer *consumer.Consumer
	engine   *index.Engine
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(cons *consumer.Consumer, engine *index.Engine) *HealthHandler {
	return &HealthHandler{
		consumer: cons,
		engine:   engine,
	}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	streamHealth := h.consumer.CheckHealth(c.Context())

	return c.JSON(fiber.Map{
		"streamConnected":      streamHealth.StreamConnected,
		"pendingMessageCount":  streamHealth.PendingCount,
		"indexedDocumentCount": h.engine.DocCount(),
	})
}
