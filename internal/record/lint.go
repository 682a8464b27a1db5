package record

import (
	"encoding/json"
	"regexp"
	"slices"
	"strings"
)

// LintResult reports which expected sections a summary lacks.
// Lint is advisory: a summary with missing sections is still stored.
type LintResult struct {
	MissingSections []string
	Chars           int
	Tokens          int
}

// OK reports whether every expected section was found.
func (r LintResult) OK() bool { return len(r.MissingSections) == 0 }

// summarySections lists the sections a state summary should carry, in order.
var summarySections = []string{
	"Current task",
	"Decisions",
	"Context",
	"Next steps",
}

var sectionSynonyms = map[string][]string{
	"Current task": {"current task", "current task/goal", "current goal", "task", "goal", "objective"},
	"Decisions":    {"decisions", "key decisions", "decisions made", "key decisions made"},
	"Context":      {"context", "important context", "key context", "files modified", "errors encountered"},
	"Next steps":   {"next steps", "next planned steps", "planned steps", "next actions", "todo"},
}

// sectionPatterns holds one compiled matcher per canonical section.
var sectionPatterns = buildSectionPatterns()

// A section header is a markdown heading or a "label:" line. Either may be
// numbered, bulleted or bolded, the way models tend to format them.
func buildSectionPatterns() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(sectionSynonyms))
	for name, syns := range sectionSynonyms {
		quoted := make([]string, len(syns))
		for i, s := range syns {
			quoted[i] = regexp.QuoteMeta(s)
		}
		alt := strings.Join(quoted, "|")
		prefix := `(?im)^\s*(?:#{1,6}\s*)?(?:[-*]\s+)?(?:\d+[.)]\s*)?(?:\*\*|__)?`
		pattern := prefix + `(?:` + alt + `)(?:\*\*|__)?\s*(?::|$|\*\*:|\s*\(|\s*-)`
		out[name] = regexp.MustCompile(pattern)
	}
	return out
}

// LintSummary checks a condensed summary for the expected sections.
func LintSummary(text string) LintResult {
	result := LintResult{
		Chars:  CountChars(text),
		Tokens: EstimateTokens(text),
	}
	for _, name := range summarySections {
		if !hasSection(text, name) {
			result.MissingSections = append(result.MissingSections, name)
		}
	}
	return result
}

func hasSection(text, name string) bool {
	if sectionPatterns[name].MatchString(text) {
		return true
	}
	return hasSectionJSON(text, sectionSynonyms[name])
}

// hasSectionJSON checks if the text is a JSON object keyed by any synonym.
func hasSectionJSON(text string, synonyms []string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return false
	}

	for key := range obj {
		k := strings.ToLower(strings.ReplaceAll(key, "_", " "))
		if slices.Contains(synonyms, k) {
			return true
		}
	}
	return false
}
