package talk

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotExecutable is returned when a line holds a command that can only
// appear in keyword lines or as a split marker.
var ErrNotExecutable = errors.New("command cannot be executed")

// Op is one executable step of a section. The set of implementations is
// closed: Or and StartNewSection have no Op form.
type Op interface {
	isOp()
}

type (
	// OpText emits literal text.
	OpText struct{ Text string }
	// OpAvatarName emits the avatar's registered name.
	OpAvatarName struct{}
	// OpNewLine emits a line break.
	OpNewLine struct{}
	// OpRune toggles runic rendering.
	OpRune struct{}
	// OpAskName asks for the avatar's name and waits for a reply.
	OpAskName struct{}
	// OpIfKnowsName branches on whether the NPC knows the avatar.
	OpIfKnowsName struct{}
	// OpGoto jumps to a label.
	OpGoto struct{ Label int }
	// OpLabelStart marks the head of a label block.
	OpLabelStart struct{ Label int }
	// OpGold takes gold from the avatar.
	OpGold struct{ Amount int }
	// OpChange hands an item to the avatar.
	OpChange struct{ Item int }
	// OpJoinParty asks the NPC into the party.
	OpJoinParty struct{}
	// OpEnd ends the conversation.
	OpEnd struct{}
	// OpNotRecognized reports that the player's input had no answer.
	OpNotRecognized struct{}
	// OpNoop does nothing.
	OpNoop struct{ Command Command }
	// OpForward passes the command through to the host untouched.
	OpForward struct{ Command Command }
)

func (OpText) isOp()          {}
func (OpAvatarName) isOp()    {}
func (OpNewLine) isOp()       {}
func (OpRune) isOp()          {}
func (OpAskName) isOp()       {}
func (OpIfKnowsName) isOp()   {}
func (OpGoto) isOp()          {}
func (OpLabelStart) isOp()    {}
func (OpGold) isOp()          {}
func (OpChange) isOp()        {}
func (OpJoinParty) isOp()     {}
func (OpEnd) isOp()           {}
func (OpNotRecognized) isOp() {}
func (OpNoop) isOp()          {}
func (OpForward) isOp()       {}

// Section is one contiguous run of ops produced by Split.
type Section []Op

// Has reports whether any op in the section satisfies match.
func (s Section) Has(match func(Op) bool) bool {
	for _, op := range s {
		if match(op) {
			return true
		}
	}
	return false
}

// MentionsAvatar reports whether the section prints the avatar's name.
func (s Section) MentionsAvatar() bool {
	return s.Has(func(op Op) bool {
		_, ok := op.(OpAvatarName)
		return ok
	})
}

// AsksName reports whether the section asks for the avatar's name.
func (s Section) AsksName() bool {
	return s.Has(func(op Op) bool {
		_, ok := op.(OpAskName)
		return ok
	})
}

// LabelStart returns the label id when the section opens a label block.
func (s Section) LabelStart() (int, bool) {
	if len(s) == 0 {
		return 0, false
	}
	ls, ok := s[0].(OpLabelStart)
	return ls.Label, ok
}

func toOp(item Item) (Op, error) {
	switch item.Command {
	case PlainString:
		return OpText{Text: item.Text}, nil
	case AvatarsName:
		return OpAvatarName{}, nil
	case NewLine:
		return OpNewLine{}, nil
	case Rune:
		return OpRune{}, nil
	case AskName:
		return OpAskName{}, nil
	case IfElseKnowsName:
		return OpIfKnowsName{}, nil
	case DefineLabel:
		return OpGoto{Label: item.Label}, nil
	case Gold:
		return OpGold{Amount: item.Data}, nil
	case JoinParty:
		return OpJoinParty{}, nil
	case EndConversation:
		return OpEnd{}, nil
	case UserInputNotRecognized:
		return OpNotRecognized{}, nil
	case UnknownEnter, DoNothingSection:
		return OpNoop{Command: item.Command}, nil
	case Pause, KarmaPlusOne, KarmaMinusOne, CallGuards, KeyWait,
		PromptNPCQuestion, PromptUserInterest:
		return OpForward{Command: item.Command}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotExecutable, item.Command)
}

type splitter struct {
	sections []Section
	force    bool
}

func (s *splitter) open(ops ...Op) {
	s.sections = append(s.sections, Section(ops))
}

func (s *splitter) add(op Op) {
	if s.force || len(s.sections) == 0 {
		s.force = false
		s.open()
	}
	last := len(s.sections) - 1
	s.sections[last] = append(s.sections[last], op)
}

// Split breaks a line into sections at its section-boundary commands.
//
// StartNewSection opens an empty section and is dropped. IfElseKnowsName,
// DoNothingSection and DefineLabel each sit alone in a section. Change sits
// alone and takes its item number from the code of the item after it, which
// is consumed. StartLabelDefinition is paired with the
// DefineLabel that follows it. Gold opens a section and takes the first three
// characters of the next text item as its amount; content after it stays in
// the same section.
func Split(line Line) ([]Section, error) {
	s := &splitter{}
	for i := 0; i < len(line); i++ {
		item := line[i]
		switch item.Command {
		case StartNewSection:
			s.open()
			s.force = false

		case Change:
			if i+1 >= len(line) {
				return nil, fmt.Errorf("change at item %d has no item number", i)
			}
			s.open(OpChange{Item: line[i+1].code()})
			s.force = true
			i++

		case IfElseKnowsName, DoNothingSection, DefineLabel:
			op, err := toOp(item)
			if err != nil {
				return nil, err
			}
			s.open(op)
			s.force = true

		case StartLabelDefinition:
			if i+1 >= len(line) {
				return nil, fmt.Errorf("label definition at item %d has no label", i)
			}
			next := line[i+1]
			switch next.Command {
			case DefineLabel:
				s.open(OpLabelStart{Label: next.Label})
			case UnknownEnter:
				s.open(OpNoop{Command: UnknownEnter})
			default:
				return nil, fmt.Errorf("label definition at item %d followed by %s", i, next.Command)
			}
			i++
			s.force = true

		case Gold:
			if i+1 >= len(line) || line[i+1].Command != PlainString {
				return nil, fmt.Errorf("gold at item %d has no amount", i)
			}
			amount, err := parseGold(line[i+1].Text)
			if err != nil {
				return nil, fmt.Errorf("gold at item %d: %w", i, err)
			}
			s.open(OpGold{Amount: amount})
			s.force = false
			i++

		default:
			op, err := toOp(item)
			if err != nil {
				return nil, err
			}
			s.add(op)
		}
	}
	return s.sections, nil
}

func parseGold(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) < goldDigits {
		return 0, fmt.Errorf("amount %q shorter than %d digits", s, goldDigits)
	}
	return strconv.Atoi(s[:goldDigits])
}
