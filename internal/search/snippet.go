package search

import (
	"os"
	"strings"
)

const (
	// markerWindowLines is the snippet window starting at a structural marker.
	markerWindowLines = 5

	// leadingCodeLines is the final-fallback snippet length.
	leadingCodeLines = 8
)

// structuralMarkers are annotation/registration lines worth surfacing when
// the engine produced no usable highlight fragment.
var structuralMarkers = []string{
	"@RequestMapping",
	"@GetMapping",
	"@PostMapping",
	"@PutMapping",
	"@DeleteMapping",
	"@RestController",
	"@Controller",
	"@app.route",
	"HandleFunc(",
	"router.GET(",
	"router.POST(",
	"app.Get(",
	"app.Post(",
}

// BuildSnippet produces the display snippet for one result. Fallback order:
// an engine highlight fragment that is not a license header; a short window
// at a structural marker line; the first non-comment lines of the file.
// Returns "" when no source text is available at all.
func BuildSnippet(fragments []string, path, storedCode string) string {
	for _, fragment := range fragments {
		if fragment != "" && !looksLikeLicense(fragment) {
			return fragment
		}
	}

	text := readSource(path, storedCode)
	if text == "" {
		return ""
	}

	if snippet := markerSnippet(text); snippet != "" {
		return snippet
	}

	return firstCodeLines(text, leadingCodeLines)
}

// readSource loads the document source by its stored path, falling back to
// the stored code field when the file is missing or unreadable.
func readSource(path, storedCode string) string {
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return string(data)
		}
	}
	return storedCode
}

func looksLikeLicense(fragment string) bool {
	return strings.Contains(strings.ToLower(fragment), "copyright")
}

// markerSnippet returns a short window starting at the first structural
// marker line, or "" if the text has none.
func markerSnippet(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		for _, marker := range structuralMarkers {
			if strings.Contains(line, marker) {
				end := i + markerWindowLines
				if end > len(lines) {
					end = len(lines)
				}
				return strings.Join(lines[i:end], "\n")
			}
		}
	}
	return ""
}

// firstCodeLines returns the first maxLines non-blank, non-comment lines.
func firstCodeLines(text string, maxLines int) string {
	var sb strings.Builder
	count := 0

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" ||
			strings.HasPrefix(trimmed, "/*") ||
			strings.HasPrefix(trimmed, "*") ||
			strings.HasPrefix(trimmed, "//") ||
			strings.HasPrefix(trimmed, "#") {
			continue
		}

		sb.WriteString(line)
		sb.WriteString("\n")
		count++
		if count >= maxLines {
			break
		}
	}

	return sb.String()
}
