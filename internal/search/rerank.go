package search

import (
	"math"
	"strings"

	"github.com/dcse/searchd/internal/domain"
)

// Rerank multipliers. Applied multiplicatively to the raw engine score.
const (
	endpointControllerBoost = 4.0
	endpointNonController   = 0.2
	codeTestPenalty         = 0.3
	codeConfigPenalty       = 0.4
	repoControllerPenalty   = 0.3
	repoEntryPointBoost     = 5.0
	diversityDecay          = 0.85
)

// Rerank adjusts a candidate's raw score using intent-aware structural
// signals and exponential diversity decay on repeated repositories.
func Rerank(baseScore float64, s domain.RankSignals, intent domain.Intent, path string) float64 {
	score := baseScore

	switch intent {
	case domain.IntentEndpoint:
		if s.IsController && s.HasMapping {
			score *= endpointControllerBoost
		}
		if !s.IsController {
			score *= endpointNonController
		}
	case domain.IntentCode:
		if s.IsTest {
			score *= codeTestPenalty
		}
		if s.IsConfig {
			score *= codeConfigPenalty
		}
	case domain.IntentRepository:
		if s.IsController {
			score *= repoControllerPenalty
		}
		if IsEntryPointPath(path) {
			score *= repoEntryPointBoost
		}
	}

	return score * math.Pow(diversityDecay, float64(s.RepoFrequency))
}

// IsTestPath reports whether a file path follows test-file conventions.
func IsTestPath(path string) bool {
	return strings.Contains(path, "/test/") ||
		strings.Contains(path, "/tests/") ||
		strings.HasSuffix(path, "_test.go") ||
		strings.HasSuffix(path, "Test.java") ||
		strings.HasSuffix(path, "Tests.java") ||
		strings.HasSuffix(path, ".spec.ts") ||
		strings.HasSuffix(path, ".test.js")
}

// IsConfigPath reports whether a file path looks like configuration, build,
// or SQL material rather than application code.
func IsConfigPath(path string) bool {
	return strings.HasSuffix(path, ".yml") ||
		strings.HasSuffix(path, ".yaml") ||
		strings.HasSuffix(path, ".properties") ||
		strings.HasSuffix(path, ".toml") ||
		strings.HasSuffix(path, ".sql") ||
		strings.Contains(path, "/k8s/")
}

// IsEntryPointPath reports whether a file path is a repository entry point:
// a README or a build manifest.
func IsEntryPointPath(path string) bool {
	base := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		base = path[i+1:]
	}
	switch base {
	case "README.md", "readme.md", "README.rst",
		"pom.xml", "build.gradle", "go.mod", "package.json", "Cargo.toml":
		return true
	}
	return false
}
