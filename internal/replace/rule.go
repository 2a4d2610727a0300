// Package replace implements the placeholder substitution used when chapter
// bodies and content documents are generated.
//
// Two kinds of rules exist. Regex rules are applied first, in declaration
// order, and their output is not rescanned by later regex rules. Simple rules
// then replace exact substrings, so they do see text produced by regex rules.
// A final model pass swaps {$setting.<path>} tokens for configuration values.
package replace

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind tags a Rule as simple (literal) or regex.
type Kind int

const (
	KindSimple Kind = iota
	KindRegex
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindRegex:
		return "regex"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps the configuration "type" value to a Kind.
// Anything other than "regex" (including an empty value) is simple.
func ParseKind(s string) Kind {
	if strings.EqualFold(strings.TrimSpace(s), "regex") {
		return KindRegex
	}
	return KindSimple
}

// Rule is a single replacement. Construct it with Simple or Regex.
type Rule struct {
	kind        Kind
	placeholder string
	replacement string

	pattern  *regexp.Regexp // regex only
	template string         // regex only, replacement in regexp.Expand syntax
}

// Simple returns a literal substring replacement rule.
func Simple(placeholder, replacement string) Rule {
	return Rule{kind: KindSimple, placeholder: placeholder, replacement: replacement}
}

// Regex returns a pattern replacement rule. The replacement accepts \1 and
// \g<name> group references; a literal $ is kept as is.
func Regex(pattern, replacement string) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid regex placeholder %q: %w", pattern, err)
	}
	return Rule{
		kind:        KindRegex,
		placeholder: pattern,
		replacement: replacement,
		pattern:     re,
		template:    expandTemplate(replacement),
	}, nil
}

// New builds a rule of the given kind.
func New(kind Kind, placeholder, replacement string) (Rule, error) {
	switch kind {
	case KindRegex:
		return Regex(placeholder, replacement)
	case KindSimple:
		return Simple(placeholder, replacement), nil
	default:
		return Rule{}, fmt.Errorf("unknown replace kind %v", kind)
	}
}

func (r Rule) Kind() Kind          { return r.kind }
func (r Rule) Placeholder() string { return r.placeholder }
func (r Rule) Replacement() string { return r.replacement }

// expandTemplate converts a backslash style group template into the $ syntax
// understood by regexp.Regexp.ReplaceAllString.
func expandTemplate(s string) string {
	if !strings.ContainsAny(s, `\$`) {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '$':
			b.WriteString("$$")
		case ch == '\\' && i+1 < len(s):
			next := s[i+1]
			switch {
			case isDigit(next):
				j := i + 2
				if j < len(s) && isDigit(s[j]) {
					j++
				}
				b.WriteString("${" + s[i+1:j] + "}")
				i = j - 1
			case next == 'g' && i+2 < len(s) && s[i+2] == '<':
				end := strings.IndexByte(s[i+3:], '>')
				if end < 0 {
					b.WriteByte(ch)
					continue
				}
				b.WriteString("${" + s[i+3:i+3+end] + "}")
				i += 3 + end
			case next == '\\':
				b.WriteByte('\\')
				i++
			case next == 'n':
				b.WriteByte('\n')
				i++
			case next == 't':
				b.WriteByte('\t')
				i++
			default:
				b.WriteByte(ch)
			}
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
