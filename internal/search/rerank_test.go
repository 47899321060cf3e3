package search

import (
	"math"
	"testing"

	"github.com/dcse/searchd/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRerank_EndpointIntent(t *testing.T) {
	controller := domain.RankSignals{IsController: true, HasMapping: true}
	plain := domain.RankSignals{}

	boosted := Rerank(1.0, controller, domain.IntentEndpoint, "src/OwnerController.java")
	if !almostEqual(boosted, 4.0) {
		t.Errorf("Expected mapped controller boosted to 4.0, got %f", boosted)
	}

	demoted := Rerank(1.0, plain, domain.IntentEndpoint, "src/util.go")
	if !almostEqual(demoted, 0.2) {
		t.Errorf("Expected non-controller demoted to 0.2, got %f", demoted)
	}
}

func TestRerank_EndpointControllerWithoutMapping(t *testing.T) {
	signals := domain.RankSignals{IsController: true}

	// A controller without a route mapping gets neither the boost nor the
	// non-controller demotion.
	if got := Rerank(1.0, signals, domain.IntentEndpoint, "src/Base.java"); !almostEqual(got, 1.0) {
		t.Errorf("Expected neutral score 1.0, got %f", got)
	}
}

func TestRerank_CodeIntentPenalties(t *testing.T) {
	if got := Rerank(1.0, domain.RankSignals{IsTest: true}, domain.IntentCode, "src/test/FooTest.java"); !almostEqual(got, 0.3) {
		t.Errorf("Expected test penalty 0.3, got %f", got)
	}
	if got := Rerank(1.0, domain.RankSignals{IsConfig: true}, domain.IntentCode, "config/app.yml"); !almostEqual(got, 0.4) {
		t.Errorf("Expected config penalty 0.4, got %f", got)
	}
	if got := Rerank(1.0, domain.RankSignals{IsTest: true, IsConfig: true}, domain.IntentCode, "test/fixture.sql"); !almostEqual(got, 0.12) {
		t.Errorf("Expected compounded penalty 0.12, got %f", got)
	}
}

func TestRerank_RepositoryIntent(t *testing.T) {
	if got := Rerank(1.0, domain.RankSignals{}, domain.IntentRepository, "README.md"); !almostEqual(got, 5.0) {
		t.Errorf("Expected entry-point boost 5.0, got %f", got)
	}
	if got := Rerank(1.0, domain.RankSignals{IsController: true}, domain.IntentRepository, "src/OwnerController.java"); !almostEqual(got, 0.3) {
		t.Errorf("Expected controller penalty 0.3, got %f", got)
	}
}

func TestRerank_DiversityDecayMonotonic(t *testing.T) {
	prev := math.Inf(1)
	for freq := 0; freq < 5; freq++ {
		got := Rerank(1.0, domain.RankSignals{RepoFrequency: freq}, domain.IntentCode, "src/main.go")
		if got >= prev {
			t.Errorf("Expected strictly decreasing score at frequency %d: %f >= %f", freq, got, prev)
		}
		prev = got
	}

	if got := Rerank(1.0, domain.RankSignals{RepoFrequency: 2}, domain.IntentCode, "src/main.go"); !almostEqual(got, 0.85*0.85) {
		t.Errorf("Expected 0.85^2, got %f", got)
	}
}

func TestIsTestPath(t *testing.T) {
	for _, path := range []string{
		"internal/foo/bar_test.go",
		"src/test/java/OwnerTest.java",
		"src/OwnerControllerTests.java",
		"web/app.spec.ts",
		"web/app.test.js",
	} {
		if !IsTestPath(path) {
			t.Errorf("Expected %q to be a test path", path)
		}
	}
	if IsTestPath("src/main/java/Owner.java") {
		t.Error("Expected production path not to be a test path")
	}
}

func TestIsConfigPath(t *testing.T) {
	for _, path := range []string{
		"src/main/resources/application.yml",
		"deploy/k8s/service.json",
		"db/schema.sql",
		"app.properties",
	} {
		if !IsConfigPath(path) {
			t.Errorf("Expected %q to be a config path", path)
		}
	}
	if IsConfigPath("src/main.go") {
		t.Error("Expected source path not to be a config path")
	}
}

func TestIsEntryPointPath(t *testing.T) {
	for _, path := range []string{"README.md", "docs/README.md", "pom.xml", "go.mod", "package.json"} {
		if !IsEntryPointPath(path) {
			t.Errorf("Expected %q to be an entry point", path)
		}
	}
	if IsEntryPointPath("src/readme_parser.go") {
		t.Error("Expected non-manifest path not to be an entry point")
	}
}
