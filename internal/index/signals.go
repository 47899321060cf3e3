package index

import (
	"regexp"
	"strings"
)

var symbolPatterns = map[string][]*regexp.Regexp{
	"go": {
		regexp.MustCompile(`func\s+(\w+)`),
		regexp.MustCompile(`type\s+(\w+)\s+(?:struct|interface)`),
		regexp.MustCompile(`const\s+(\w+)`),
		regexp.MustCompile(`var\s+(\w+)`),
	},
	"python": {
		regexp.MustCompile(`(?m)^\s*def\s+(\w+)`),
		regexp.MustCompile(`(?m)^\s*class\s+(\w+)`),
	},
	"java": {
		regexp.MustCompile(`class\s+(\w+)`),
		regexp.MustCompile(`interface\s+(\w+)`),
		regexp.MustCompile(`enum\s+(\w+)`),
		regexp.MustCompile(`(?:public|protected|private|static|\s) +[\w\<\>\[\]]+\s+(\w+) *\(`),
	},
	"js": {
		regexp.MustCompile(`function\s+(\w+)`),
		regexp.MustCompile(`class\s+(\w+)`),
		regexp.MustCompile(`const\s+(\w+)\s*=`),
		regexp.MustCompile(`let\s+(\w+)\s*=`),
	},
	"ts": {
		regexp.MustCompile(`function\s+(\w+)`),
		regexp.MustCompile(`class\s+(\w+)`),
		regexp.MustCompile(`interface\s+(\w+)`),
		regexp.MustCompile(`type\s+(\w+)\s*=`),
		regexp.MustCompile(`const\s+(\w+)\s*=`),
	},
	"rust": {
		regexp.MustCompile(`fn\s+(\w+)`),
		regexp.MustCompile(`struct\s+(\w+)`),
		regexp.MustCompile(`enum\s+(\w+)`),
		regexp.MustCompile(`trait\s+(\w+)`),
	},
}

var (
	nonIdentifier = regexp.MustCompile(`[^a-zA-Z0-9_]`)
	commonKeyword = regexp.MustCompile(`\b(class|public|private|void|return|func|package|import|static|final)\b`)
)

// normalizeLang maps commonly used language tags onto pattern table keys.
func normalizeLang(lang string) string {
	switch strings.ToLower(strings.TrimPrefix(lang, ".")) {
	case "go", "golang":
		return "go"
	case "py", "python":
		return "python"
	case "java":
		return "java"
	case "js", "javascript", "jsx":
		return "js"
	case "ts", "typescript", "tsx":
		return "ts"
	case "rs", "rust":
		return "rust"
	default:
		return ""
	}
}

// ExtractSymbols derives the symbols field for a document: declared
// identifiers for recognized languages, otherwise the code text with
// punctuation stripped and common keywords removed.
func ExtractSymbols(lang, code string) string {
	patterns, ok := symbolPatterns[normalizeLang(lang)]
	if !ok {
		return stripToIdentifiers(code)
	}

	seen := make(map[string]struct{})
	var symbols []string
	for _, re := range patterns {
		for _, match := range re.FindAllStringSubmatch(code, -1) {
			if len(match) < 2 {
				continue
			}
			symbol := strings.TrimSpace(match[1])
			if symbol == "" || len(symbol) >= 100 {
				continue
			}
			if _, dup := seen[symbol]; dup {
				continue
			}
			seen[symbol] = struct{}{}
			symbols = append(symbols, symbol)
		}
	}

	if len(symbols) == 0 {
		return stripToIdentifiers(code)
	}
	return strings.Join(symbols, " ")
}

func stripToIdentifiers(code string) string {
	s := nonIdentifier.ReplaceAllString(code, " ")
	return commonKeyword.ReplaceAllString(s, " ")
}

// controllerMarkers identify a document as a controller/handler definition.
var controllerMarkers = []string{
	"@restcontroller",
	"@controller",
	"extends controller",
	"http.handler",
	"http.handlerfunc",
	"fiber.ctx",
	"gin.context",
	"echo.context",
}

// mappingMarkers identify route/verb mapping declarations.
var mappingMarkers = []string{
	"@requestmapping",
	"@getmapping",
	"@postmapping",
	"@putmapping",
	"@deletemapping",
	"@patchmapping",
	"@app.route",
	"router.handlefunc",
	"mux.handlefunc",
	"http.handlefunc",
	"app.get(",
	"app.post(",
	"app.put(",
	"app.delete(",
	"router.get(",
	"router.post(",
}

// DetectStructuralSignals inspects code text for controller and route-mapping
// markers. The flags are persisted with the document so intent-aware query
// boosts and reranking have them available at search time.
func DetectStructuralSignals(code string) (isController, hasMapping bool) {
	lc := strings.ToLower(code)

	for _, marker := range controllerMarkers {
		if strings.Contains(lc, marker) {
			isController = true
			break
		}
	}
	for _, marker := range mappingMarkers {
		if strings.Contains(lc, marker) {
			hasMapping = true
			break
		}
	}

	// A file declaring route mappings is a controller even without an
	// explicit controller marker.
	if hasMapping {
		isController = true
	}
	return isController, hasMapping
}
