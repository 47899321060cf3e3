package search

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/dcse/searchd/internal/domain"
)

// Boost weights for the composite query. MUST narrows endpoint queries to
// structurally relevant documents; the SHOULD clauses let partial textual
// relevance still contribute so zero-result queries stay rare.
const (
	boostControllerFlag = 6.0
	boostMappingFlag    = 7.0
	boostRequestTerm    = 4.0
	boostCodeField      = 1.0
	boostPathField      = 2.0
	boostRepoField      = 1.5
	boostLangField      = 0.5
	boostPhrase         = 3.0
	boostSymbols        = 4.0
)

// BuildQuery turns a raw query string plus intent into the composite boosted
// Bleve query.
func BuildQuery(q string, intent domain.Intent) query.Query {
	boolQuery := bleve.NewBooleanQuery()
	lq := strings.ToLower(q)

	if intent == domain.IntentEndpoint {
		controller := bleve.NewBoolFieldQuery(true)
		controller.SetField(domain.FieldIsController)
		boolQuery.AddMust(controller)
	}

	if strings.Contains(lq, "api") || strings.Contains(lq, "rest") {
		controller := bleve.NewBoolFieldQuery(true)
		controller.SetField(domain.FieldIsController)
		controller.SetBoost(boostControllerFlag)
		boolQuery.AddShould(controller)

		mapping := bleve.NewBoolFieldQuery(true)
		mapping.SetField(domain.FieldHasMapping)
		mapping.SetBoost(boostMappingFlag)
		boolQuery.AddShould(mapping)
	}

	if strings.Contains(lq, "request") {
		request := bleve.NewTermQuery("request")
		request.SetField(domain.FieldCode)
		request.SetBoost(boostRequestTerm)
		boolQuery.AddShould(request)
	}

	boolQuery.AddShould(MultiFieldQuery(q))

	phrase := bleve.NewMatchPhraseQuery(lq)
	phrase.SetField(domain.FieldCode)
	phrase.SetBoost(boostPhrase)
	boolQuery.AddShould(phrase)

	symbols := bleve.NewMatchQuery(q)
	symbols.SetField(domain.FieldSymbols)
	symbols.SetBoost(boostSymbols)
	boolQuery.AddShould(symbols)

	return boolQuery
}

// MultiFieldQuery is the weighted parse of the full query across the
// searchable fields, with conjunctive term combination within each field.
// Explain-by-hash uses it on its own, without the boost composition.
func MultiFieldQuery(q string) query.Query {
	return bleve.NewDisjunctionQuery(
		fieldMatch(q, domain.FieldCode, boostCodeField),
		fieldMatch(q, domain.FieldPath, boostPathField),
		fieldMatch(q, domain.FieldRepo, boostRepoField),
		fieldMatch(q, domain.FieldLang, boostLangField),
	)
}

func fieldMatch(q, field string, boost float64) *query.MatchQuery {
	m := bleve.NewMatchQuery(q)
	m.SetField(field)
	m.SetBoost(boost)
	m.Operator = query.MatchQueryOperatorAnd
	return m
}
