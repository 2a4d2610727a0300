package replace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"
)

// modelTokenRe matches {$<dotted.path>} model tokens. Keys may contain
// spaces since top-level setting keys are copied into the model verbatim.
var modelTokenRe = regexp.MustCompile(`\{\$([^{}]+)\}`)

// LineError reports a failure while substituting a line-oriented source.
type LineError struct {
	Line int // 1-based
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// ErrInvalidUTF8 is reported for source lines that are not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid UTF-8")

// Apply runs every regex rule in declaration order, then every simple rule.
func Apply(text string, rules []Rule) string {
	if text == "" || len(rules) == 0 {
		return text
	}

	var simple []Rule
	for _, r := range rules {
		switch r.kind {
		case KindRegex:
			text = r.pattern.ReplaceAllString(text, r.template)
		case KindSimple:
			simple = append(simple, r)
		}
	}

	for _, r := range simple {
		if r.placeholder == "" {
			continue
		}
		text = strings.ReplaceAll(text, r.placeholder, r.replacement)
	}

	return text
}

// ApplyModel replaces {$key} tokens with model[key]. Tokens without a model
// entry are left untouched and substituted values are not rescanned.
func ApplyModel(text string, model map[string]string) string {
	if len(model) == 0 || !strings.Contains(text, "{$") {
		return text
	}
	return modelTokenRe.ReplaceAllStringFunc(text, func(token string) string {
		key := token[2 : len(token)-1]
		if v, ok := model[key]; ok {
			return v
		}
		return token
	})
}

// ApplyAll applies each rule scope in order, then the model pass.
func ApplyAll(text string, model map[string]string, scopes ...[]Rule) string {
	for _, rules := range scopes {
		text = Apply(text, rules)
	}
	return ApplyModel(text, model)
}

// ApplyLines reads r line by line and applies ApplyAll to each line. Every
// line of the result ends with "\n". Read failures and lines that are not
// valid UTF-8 are reported as *LineError.
func ApplyLines(r io.Reader, model map[string]string, scopes ...[]Rule) (string, error) {
	br := bufio.NewReader(r)
	var out strings.Builder

	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", &LineError{Line: lineNo, Err: err}
		}
		if line == "" && err != nil {
			break
		}

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		if !utf8.ValidString(line) {
			return "", &LineError{Line: lineNo, Err: ErrInvalidUTF8}
		}

		out.WriteString(ApplyAll(line+"\n", model, scopes...))

		if err != nil {
			break
		}
	}

	return out.String(), nil
}
