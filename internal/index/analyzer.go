package index

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	// SynonymFilterType is the registered type name of the synonym token filter.
	SynonymFilterType = "synonym_expand"

	// SynonymFilterName is the name the filter is added under in a mapping.
	SynonymFilterName = "searchd_synonyms"

	// CodeAnalyzerName is the analyzer used for the code and symbols fields
	// and for query parsing.
	CodeAnalyzerName = "code_search"
)

func init() {
	_ = registry.RegisterTokenFilter(SynonymFilterType, synonymFilterConstructor)
}

// LoadSynonymRules reads newline-delimited synonym rules of the form
// "term => synonym1, synonym2". Blank lines and lines without "=>" are
// skipped. A missing file is not an error; it yields no rules.
func LoadSynonymRules(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open synonyms file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var rules []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.Contains(line, "=>") {
			continue
		}
		rules = append(rules, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read synonyms file: %w", err)
	}
	return rules, nil
}

// parseSynonymRules expands rules into a bidirectional term expansion map.
// Every term in a rule maps to all other terms of the same rule, so indexing
// and query parsing agree regardless of which side of "=>" a term came from.
func parseSynonymRules(rules []string) map[string][]string {
	expansions := make(map[string][]string)

	for _, rule := range rules {
		parts := strings.SplitN(rule, "=>", 2)
		if len(parts) != 2 {
			continue
		}

		terms := []string{strings.ToLower(strings.TrimSpace(parts[0]))}
		for _, syn := range strings.Split(parts[1], ",") {
			syn = strings.ToLower(strings.TrimSpace(syn))
			if syn != "" {
				terms = append(terms, syn)
			}
		}
		if len(terms) < 2 {
			continue
		}

		for _, term := range terms {
			for _, other := range terms {
				if other == term || containsTerm(expansions[term], other) {
					continue
				}
				expansions[term] = append(expansions[term], other)
			}
		}
	}

	return expansions
}

func containsTerm(terms []string, term string) bool {
	for _, t := range terms {
		if t == term {
			return true
		}
	}
	return false
}

// synonymFilterConstructor creates the synonym filter from mapping config.
// Rules are passed through the custom token filter config under "rules".
func synonymFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	var rules []string
	switch raw := config["rules"].(type) {
	case []string:
		rules = raw
	case []interface{}:
		for _, r := range raw {
			if s, ok := r.(string); ok {
				rules = append(rules, s)
			}
		}
	}

	return &synonymFilter{expansions: parseSynonymRules(rules)}, nil
}

// synonymFilter injects synonym tokens at the position of the matched term.
type synonymFilter struct {
	expansions map[string][]string
}

// Filter implements analysis.TokenFilter.
func (f *synonymFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	if len(f.expansions) == 0 {
		return input
	}

	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		result = append(result, token)

		synonyms, ok := f.expansions[string(token.Term)]
		if !ok {
			continue
		}
		for _, syn := range synonyms {
			result = append(result, &analysis.Token{
				Term:     []byte(syn),
				Start:    token.Start,
				End:      token.End,
				Position: token.Position,
				Type:     token.Type,
			})
		}
	}
	return result
}
