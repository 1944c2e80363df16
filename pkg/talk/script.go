package talk

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTooShort       = errors.New("script has fewer lines than the fixed slots")
	ErrMalformed      = errors.New("malformed script")
	ErrDuplicateLabel = errors.New("duplicate label")
	ErrLabelNotFound  = errors.New("label not found")
)

// Slot names one of the fixed lines every script begins with.
type Slot int

const (
	SlotName Slot = iota
	SlotDescription
	SlotGreeting
	SlotJob
	SlotBye

	slotCount
)

func (s Slot) String() string {
	switch s {
	case SlotName:
		return "name"
	case SlotDescription:
		return "description"
	case SlotGreeting:
		return "greeting"
	case SlotJob:
		return "job"
	case SlotBye:
		return "bye"
	}
	return fmt.Sprintf("Slot(%d)", int(s))
}

// Label is a jumpable block with its own default answers and keyword table.
type Label struct {
	ID        int
	Line      int
	Initial   Line
	Defaults  []Line
	Questions *QuestionTable
}

// HasQuestions reports whether visiting the label prompts the player.
func (l *Label) HasQuestions() bool {
	return len(l.Defaults) > 0
}

// Script is the structured form of one NPC's conversation. A built Script
// is never modified and may be shared between conversations.
type Script struct {
	lines      []Line
	questions  *QuestionTable
	labels     []*Label
	labelLines map[int]int
	labelByID  map[int]*Label
}

// Build structures decoded lines into a Script.
func Build(lines []Line) (*Script, error) {
	if len(lines) < int(slotCount) {
		return nil, fmt.Errorf("%w: got %d lines", ErrTooShort, len(lines))
	}

	s := &Script{
		lines:      make([]Line, len(lines)),
		questions:  NewQuestionTable(),
		labelLines: make(map[int]int),
		labelByID:  make(map[int]*Label),
	}
	for i, line := range lines {
		s.lines[i] = append(Line(nil), line...)
	}

	s.questions.Add(&QuestionAnswer{Keywords: []string{"name"}, Answer: s.lines[SlotName]})
	s.questions.Add(&QuestionAnswer{Keywords: []string{"job", "work"}, Answer: s.lines[SlotJob]})
	s.lines[SlotBye] = append(s.lines[SlotBye], Cmd(EndConversation))
	s.questions.Add(&QuestionAnswer{Keywords: []string{"bye"}, Answer: s.lines[SlotBye]})

	i := int(slotCount)
	for i < len(s.lines) && !s.lines[i].StartsWith(StartLabelDefinition) {
		next, err := s.readQuestion(i, s.questions)
		if err != nil {
			return nil, err
		}
		i = next
	}

	if err := s.readLabels(i); err != nil {
		return nil, err
	}
	if err := s.checkJumps(); err != nil {
		return nil, err
	}
	return s, nil
}

// readQuestion reads one question (with any Or-chained alternatives) and
// its answer starting at line i, and returns the index after the answer.
func (s *Script) readQuestion(i int, table *QuestionTable) (int, error) {
	keywords := []string{s.lines[i].Keyword()}
	for i+1 < len(s.lines) && s.lines[i+1].Contains(Or) {
		i += 2
		if i >= len(s.lines) {
			return 0, fmt.Errorf("%w: dangling <Or> at line %d", ErrMalformed, i-1)
		}
		keywords = append(keywords, s.lines[i].Keyword())
	}
	if i+1 >= len(s.lines) {
		return 0, fmt.Errorf("%w: question %q at line %d has no answer", ErrMalformed, keywords[0], i)
	}
	table.Add(&QuestionAnswer{Keywords: keywords, Answer: s.lines[i+1]})
	return i + 2, nil
}

func (s *Script) readLabels(i int) error {
	for i < len(s.lines) {
		line := s.lines[i]
		if line.IsEndOfLabels() {
			return nil
		}
		if !line.IsLabelStart() {
			return fmt.Errorf("%w: expected label definition at line %d, got %s", ErrMalformed, i, line)
		}

		id := line[1].Label
		if id < 0 || id >= TotalLabels {
			return fmt.Errorf("%w: %d at line %d", ErrLabelOutOfRange, id, i)
		}
		if _, ok := s.labelByID[id]; ok {
			return fmt.Errorf("%w: %d at line %d", ErrDuplicateLabel, id, i)
		}
		label := &Label{ID: id, Line: i, Initial: line, Questions: NewQuestionTable()}
		s.labels = append(s.labels, label)
		s.labelByID[id] = label
		s.labelLines[id] = i
		i++

		if s.atLabelBoundary(i) {
			continue
		}
		label.Defaults = append(label.Defaults, s.lines[i])
		i++

		for !s.atLabelBoundary(i) {
			// A line that is not a keyword where one is expected is another
			// default answer.
			if !s.lines[i].IsQuestion() {
				label.Defaults = append(label.Defaults, s.lines[i])
				i++
				continue
			}
			next, err := s.readQuestion(i, label.Questions)
			if err != nil {
				return fmt.Errorf("label %d: %w", id, err)
			}
			i = next
		}
	}
	return nil
}

func (s *Script) atLabelBoundary(i int) bool {
	return i >= len(s.lines) || s.lines[i].StartsWith(StartLabelDefinition)
}

// checkJumps verifies that every label jump names a defined label.
func (s *Script) checkJumps() error {
	for n, line := range s.lines {
		for j, item := range line {
			if item.Command != DefineLabel {
				continue
			}
			if j == 1 && line.IsLabelStart() {
				continue
			}
			if _, err := s.LabelLine(item.Label); err != nil {
				return fmt.Errorf("jump at line %d: %w", n, err)
			}
		}
	}
	return nil
}

// LabelLine returns the index of the line that defines label id.
func (s *Script) LabelLine(id int) (int, error) {
	if id < 0 || id >= TotalLabels {
		return 0, fmt.Errorf("%w: %d", ErrLabelOutOfRange, id)
	}
	idx, ok := s.labelLines[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrLabelNotFound, id)
	}
	return idx, nil
}

// Label returns the label with the given id.
func (s *Script) Label(id int) (*Label, error) {
	if _, err := s.LabelLine(id); err != nil {
		return nil, err
	}
	return s.labelByID[id], nil
}

// LabelAt returns the label whose block starts at line index i.
func (s *Script) LabelAt(i int) (*Label, bool) {
	if i < 0 || i >= len(s.lines) || !s.lines[i].IsLabelStart() {
		return nil, false
	}
	l, ok := s.labelByID[s.lines[i][1].Label]
	return l, ok && l.Line == i
}

// Labels returns the labels in definition order.
func (s *Script) Labels() []*Label {
	return append([]*Label(nil), s.labels...)
}

// Line returns line i of the script.
func (s *Script) Line(i int) Line {
	return s.lines[i]
}

// Slot returns one of the fixed lines.
func (s *Script) Slot(slot Slot) Line {
	return s.lines[slot]
}

// Len returns the number of lines.
func (s *Script) Len() int {
	return len(s.lines)
}

// Questions returns the global keyword table.
func (s *Script) Questions() *QuestionTable {
	return s.questions
}

// Name returns the NPC's name as written in the Name slot.
func (s *Script) Name() string {
	var b strings.Builder
	for _, item := range s.lines[SlotName] {
		if item.Command == PlainString {
			b.WriteString(item.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
