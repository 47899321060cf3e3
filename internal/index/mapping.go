package index

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/dcse/searchd/internal/domain"
)

// CreateIndexMapping creates the Bleve index mapping for IndexDocument.
// synonymRules feed the code_search analyzer used for both indexing and
// query parsing; pass nil for no synonym expansion.
func CreateIndexMapping(synonymRules []string) (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()

	if err := indexMapping.AddCustomTokenFilter(SynonymFilterName, map[string]interface{}{
		"type":  SynonymFilterType,
		"rules": synonymRules,
	}); err != nil {
		return nil, fmt.Errorf("failed to add synonym filter: %w", err)
	}

	if err := indexMapping.AddCustomAnalyzer(CodeAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			lowercase.Name,
			SynonymFilterName,
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to add code analyzer: %w", err)
	}

	docMapping := bleve.NewDocumentMapping()

	// Code - analyzed, stored, term vectors on for phrase queries and highlighting
	codeField := bleve.NewTextFieldMapping()
	codeField.Analyzer = CodeAnalyzerName
	codeField.Store = true
	codeField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(domain.FieldCode, codeField)

	// Path - keyword (not analyzed), stored for retrieval and snippet lookup
	pathField := bleve.NewTextFieldMapping()
	pathField.Analyzer = keyword.Name
	pathField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldPath, pathField)

	// Repo - keyword, stored; filterable but not phrase-searchable
	repoField := bleve.NewTextFieldMapping()
	repoField.Analyzer = keyword.Name
	repoField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldRepo, repoField)

	// Lang - analyzed, stored
	langField := bleve.NewTextFieldMapping()
	langField.Analyzer = CodeAnalyzerName
	langField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldLang, langField)

	// Hash - keyword, stored; exact-match change-detection key
	hashField := bleve.NewTextFieldMapping()
	hashField.Analyzer = keyword.Name
	hashField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldHash, hashField)

	// Symbols - analyzed, indexed only
	symbolsField := bleve.NewTextFieldMapping()
	symbolsField.Analyzer = CodeAnalyzerName
	symbolsField.Store = false
	docMapping.AddFieldMappingsAt(domain.FieldSymbols, symbolsField)

	// Structural signal flags - stored for rerank, queryable for intent boosts
	controllerField := bleve.NewBooleanFieldMapping()
	controllerField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldIsController, controllerField)

	mappingField := bleve.NewBooleanFieldMapping()
	mappingField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldHasMapping, mappingField)

	// ID - stored but not indexed; the document key is the Bleve doc ID
	idField := bleve.NewTextFieldMapping()
	idField.Index = false
	idField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldID, idField)

	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = CodeAnalyzerName

	return indexMapping, nil
}
