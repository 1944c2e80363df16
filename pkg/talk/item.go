package talk

import (
	"fmt"
	"strings"
)

// Item is one decoded unit of a script line: literal text or a command.
type Item struct {
	Command Command `json:"command"`
	Text    string  `json:"text,omitempty"`
	Label   int     `json:"label,omitempty"`
	Data    int     `json:"data,omitempty"`
}

// Text builds a PlainString item. Surrounding double quotes are stripped.
func Text(s string) Item {
	return Item{Command: PlainString, Text: strings.Trim(s, `"`)}
}

// Cmd builds a bare command item.
func Cmd(c Command) Item {
	return Item{Command: c}
}

// LabelItem builds a DefineLabel item for the given label id.
func LabelItem(id int) Item {
	return Item{Command: DefineLabel, Label: id}
}

// IsQuestion reports whether the item text looks like a keyword the player
// would type: one to six characters with no spaces.
func (i Item) IsQuestion() bool {
	return isQuestion(i.Text)
}

func isQuestion(s string) bool {
	t := strings.TrimSpace(s)
	return len(t) >= 1 && len(t) <= 6 && !strings.Contains(s, " ")
}

// code returns the byte the item was decoded from.
func (i Item) code() int {
	if i.Command == DefineLabel || i.Command == GotoLabel {
		return int(MinLabel) + i.Label
	}
	return int(i.Command)
}

func (i Item) String() string {
	switch i.Command {
	case PlainString:
		return strings.TrimSpace(i.Text)
	case DefineLabel, GotoLabel:
		return fmt.Sprintf("<%s%d>", i.Command, i.Label)
	default:
		return "<" + i.Command.String() + ">"
	}
}

// Line is an ordered run of items.
type Line []Item

// Contains reports whether any item in the line carries the command.
func (l Line) Contains(c Command) bool {
	for _, item := range l {
		if item.Command == c {
			return true
		}
	}
	return false
}

func (l Line) commandAt(i int) (Command, bool) {
	if i < 0 || i >= len(l) {
		return 0, false
	}
	return l[i].Command, true
}

// StartsWith reports whether the first item carries the command.
func (l Line) StartsWith(c Command) bool {
	first, ok := l.commandAt(0)
	return ok && first == c
}

// IsLabelStart reports whether the line opens a label block.
func (l Line) IsLabelStart() bool {
	second, ok := l.commandAt(1)
	return l.StartsWith(StartLabelDefinition) && ok && second == DefineLabel
}

// IsEndOfLabels reports whether the line is the end-of-labels sentinel.
func (l Line) IsEndOfLabels() bool {
	second, ok := l.commandAt(1)
	return len(l) == 2 && l.StartsWith(StartLabelDefinition) && ok && second == UnknownEnter
}

// IsQuestion reports whether the line's first item is a keyword.
func (l Line) IsQuestion() bool {
	return len(l) > 0 && l[0].IsQuestion()
}

// Keyword returns the trimmed text of the first item.
func (l Line) Keyword() string {
	if len(l) == 0 {
		return ""
	}
	return strings.TrimSpace(l[0].Text)
}

func (l Line) String() string {
	var b strings.Builder
	for _, item := range l {
		b.WriteString(item.String())
	}
	return b.String()
}
