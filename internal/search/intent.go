package search

import (
	"regexp"
	"strings"

	"github.com/dcse/searchd/internal/domain"
)

var repoNamePattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Classify heuristically labels a raw query string. Path separators, HTTP
// verb mapping markers, and the literal tokens "controller"/"mapping" signal
// an endpoint lookup; a short plain hyphenated token looks like a repository
// name; anything else is a free-form code search. Ties resolve to code.
func Classify(q string) domain.Intent {
	lq := strings.ToLower(q)

	if strings.Contains(lq, "/") ||
		strings.Contains(lq, "@get") ||
		strings.Contains(lq, "@post") ||
		strings.Contains(lq, "controller") ||
		strings.Contains(lq, "mapping") {
		return domain.IntentEndpoint
	}

	if len(lq) < 20 && repoNamePattern.MatchString(lq) {
		return domain.IntentRepository
	}

	return domain.IntentCode
}
