package talk

import (
	"strings"

	"golang.org/x/text/cases"
)

// QuestionAnswer ties a set of equivalent keywords to one answer line.
type QuestionAnswer struct {
	Keywords []string `json:"keywords"`
	Answer   Line     `json:"answer"`
}

// QuestionTable is a keyword to answer table. Keywords keep their
// registration order, and a keyword already present is never replaced.
type QuestionTable struct {
	keys    []string
	answers map[string]*QuestionAnswer
}

// NewQuestionTable returns an empty table.
func NewQuestionTable() *QuestionTable {
	return &QuestionTable{answers: make(map[string]*QuestionAnswer)}
}

// Add registers the answer under each of its keywords not already present.
func (t *QuestionTable) Add(qa *QuestionAnswer) {
	for _, kw := range qa.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if _, ok := t.answers[kw]; ok {
			continue
		}
		t.keys = append(t.keys, kw)
		t.answers[kw] = qa
	}
}

// Has reports whether kw is registered exactly.
func (t *QuestionTable) Has(kw string) bool {
	_, ok := t.answers[strings.TrimSpace(kw)]
	return ok
}

// Match finds the answer for free text input. A keyword matches when the
// case-folded input starts with the case-folded keyword; the first keyword
// registered wins.
func (t *QuestionTable) Match(input string) (*QuestionAnswer, bool) {
	// Casers carry state, so each call gets its own.
	fold := cases.Fold()
	in := fold.String(strings.TrimSpace(input))
	if in == "" {
		return nil, false
	}
	for _, kw := range t.keys {
		if strings.HasPrefix(in, fold.String(kw)) {
			return t.answers[kw], true
		}
	}
	return nil, false
}

// Keywords returns every registered keyword in registration order.
func (t *QuestionTable) Keywords() []string {
	return append([]string(nil), t.keys...)
}

// Answers returns each distinct answer once, in registration order.
func (t *QuestionTable) Answers() []*QuestionAnswer {
	seen := make(map[*QuestionAnswer]bool)
	var out []*QuestionAnswer
	for _, kw := range t.keys {
		qa := t.answers[kw]
		if seen[qa] {
			continue
		}
		seen[qa] = true
		out = append(out, qa)
	}
	return out
}

// Len returns the number of registered keywords.
func (t *QuestionTable) Len() int {
	return len(t.keys)
}
