package talk

import (
	"fmt"
)

// Command is a talk command as it appears in a .tlk byte stream.
type Command uint8

const (
	PlainString            Command = 0x00
	UserInputNotRecognized Command = 0x7E
	PromptUserInterest     Command = 0x7F
	PromptNPCQuestion      Command = 0x80
	AvatarsName            Command = 0x81
	EndConversation        Command = 0x82
	Pause                  Command = 0x83
	JoinParty              Command = 0x84
	Gold                   Command = 0x85
	Change                 Command = 0x86
	Or                     Command = 0x87
	AskName                Command = 0x88
	KarmaPlusOne           Command = 0x89
	KarmaMinusOne          Command = 0x8A
	CallGuards             Command = 0x8B
	IfElseKnowsName        Command = 0x8C
	NewLine                Command = 0x8D
	Rune                   Command = 0x8E
	KeyWait                Command = 0x8F
	StartLabelDefinition   Command = 0x90
	UnknownEnter           Command = 0x9F
	StartNewSection        Command = 0xA2
	GotoLabel              Command = 0xFD
	DefineLabel            Command = 0xFE
	DoNothingSection       Command = 0xFF
)

const (
	// MinLabel is the first byte code denoting a label marker.
	MinLabel byte = 0x91
	// MaxLabel is the last byte code denoting a label marker.
	MaxLabel byte = MinLabel + 0x0A
	// TotalLabels is the number of label ids a script may define.
	TotalLabels = 10
)

var commandNames = map[Command]string{
	PlainString:            "PlainString",
	UserInputNotRecognized: "UserInputNotRecognized",
	PromptUserInterest:     "PromptUserInterest",
	PromptNPCQuestion:      "PromptNPCQuestion",
	AvatarsName:            "AvatarsName",
	EndConversation:        "EndConversation",
	Pause:                  "Pause",
	JoinParty:              "JoinParty",
	Gold:                   "Gold",
	Change:                 "Change",
	Or:                     "Or",
	AskName:                "AskName",
	KarmaPlusOne:           "KarmaPlusOne",
	KarmaMinusOne:          "KarmaMinusOne",
	CallGuards:             "CallGuards",
	IfElseKnowsName:        "IfElseKnowsName",
	NewLine:                "NewLine",
	Rune:                   "Rune",
	KeyWait:                "KeyWait",
	StartLabelDefinition:   "StartLabelDefinition",
	UnknownEnter:           "UnknownEnter",
	StartNewSection:        "StartNewSection",
	GotoLabel:              "GotoLabel",
	DefineLabel:            "DefineLabel",
	DoNothingSection:       "DoNothingSection",
}

var commandsByName = func() map[string]Command {
	m := make(map[string]Command, len(commandNames))
	for c, name := range commandNames {
		m[name] = c
	}
	return m
}()

// Known reports whether c is part of the command set.
func (c Command) Known() bool {
	_, ok := commandNames[c]
	return ok
}

// String returns the command name, or a hex code for unknown values.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(0x%02X)", uint8(c))
}

// MarshalText encodes the command by name.
func (c Command) MarshalText() ([]byte, error) {
	if !c.Known() {
		return nil, fmt.Errorf("unknown talk command 0x%02X", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a command name.
func (c *Command) UnmarshalText(text []byte) error {
	cmd, ok := commandsByName[string(text)]
	if !ok {
		return fmt.Errorf("unknown talk command %q", string(text))
	}
	*c = cmd
	return nil
}

// decodable reports whether the byte may appear as a control code in a
// .tlk stream. Prompt markers and UserInputNotRecognized are synthesised
// at runtime, and label commands only come from the label code range.
func decodable(b byte) bool {
	switch c := Command(b); c {
	case PlainString, PromptUserInterest, PromptNPCQuestion, UserInputNotRecognized,
		GotoLabel, DefineLabel:
		return false
	default:
		return c.Known()
	}
}
