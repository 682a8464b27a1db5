package vectorstore

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hpungsan/carryon/internal/errors"
	"github.com/hpungsan/carryon/internal/record"
)

// Op is a filter comparison.
type Op string

const (
	OpEq Op = "=="
	OpNe Op = "!="
)

// Condition compares one metadata key against a literal.
type Condition struct {
	Key   string
	Op    Op
	Value string
}

// Filter is a conjunction of conditions over document metadata.
// A nil Filter matches everything.
type Filter []Condition

// AreaIs matches documents whose area equals area.
func AreaIs(area string) Filter {
	return Filter{{Key: record.KeyArea, Op: OpEq, Value: area}}
}

// Where returns f with an extra condition.
func (f Filter) Where(key string, op Op, value string) Filter {
	out := make(Filter, len(f), len(f)+1)
	copy(out, f)
	return append(out, Condition{Key: key, Op: op, Value: value})
}

// Match reports whether md satisfies every condition. A missing key
// compares as the empty string.
func (f Filter) Match(md map[string]string) bool {
	for _, c := range f {
		v := md[c.Key]
		switch c.Op {
		case OpEq:
			if v != c.Value {
				return false
			}
		case OpNe:
			if v == c.Value {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// area returns the value of an area equality condition, if any, so the
// scan can be narrowed in SQL.
func (f Filter) area() string {
	for _, c := range f {
		if c.Key == record.KeyArea && c.Op == OpEq {
			return c.Value
		}
	}
	return ""
}

func (f Filter) String() string {
	parts := make([]string, len(f))
	for i, c := range f {
		parts[i] = fmt.Sprintf("%s%s'%s'", c.Key, c.Op, strings.ReplaceAll(c.Value, "'", `\'`))
	}
	return strings.Join(parts, " and ")
}

var conditionRegex = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*(==|!=)\s*(?:'((?:[^'\\]|\\.)*)'|"((?:[^"\\]|\\.)*)")\s*$`)

var andRegex = regexp.MustCompile(`(?i)\s+and\s+`)

// ParseFilter parses expressions like "area=='session_state' and context_id!='x'".
// An empty expression yields a nil Filter.
func ParseFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	var f Filter
	for _, part := range splitConjunction(expr) {
		m := conditionRegex.FindStringSubmatch(part)
		if m == nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid filter condition: %q", strings.TrimSpace(part)))
		}
		value := m[3]
		if m[4] != "" {
			value = m[4]
		}
		value = strings.NewReplacer(`\'`, `'`, `\"`, `"`, `\\`, `\`).Replace(value)
		f = append(f, Condition{Key: m[1], Op: Op(m[2]), Value: value})
	}
	return f, nil
}

// splitConjunction splits on "and" outside quoted literals.
func splitConjunction(expr string) []string {
	var (
		parts []string
		start int
		quote byte
	)
	for i := 0; i < len(expr); i++ {
		ch := expr[i]
		switch {
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		default:
			if loc := andRegex.FindStringIndex(expr[i:]); loc != nil && loc[0] == 0 {
				parts = append(parts, expr[start:i])
				start = i + loc[1]
				i = start - 1
			}
		}
	}
	return append(parts, expr[start:])
}
