package talk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_Gold(t *testing.T) {
	line := Line{Text("That will be "), Cmd(Gold), Text("100"), Text(" gold, friend.")}

	sections, err := Split(line)
	require.NoError(t, err)
	require.Len(t, sections, 2)

	assert.Equal(t, Section{OpText{Text: "That will be "}}, sections[0])
	gold, ok := sections[1][0].(OpGold)
	require.True(t, ok, "second section should open with gold, got %T", sections[1][0])
	assert.Equal(t, 100, gold.Amount)
	assert.Equal(t, OpText{Text: " gold, friend."}, sections[1][1])
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		line     Line
		expected []Section
	}{
		{
			name:     "plain text is one section",
			line:     Line{Text("Hello "), Cmd(AvatarsName), Cmd(NewLine)},
			expected: []Section{{OpText{Text: "Hello "}, OpAvatarName{}, OpNewLine{}}},
		},
		{
			name: "new section marker is dropped",
			line: Line{Text("one"), Cmd(StartNewSection), Text("two")},
			expected: []Section{
				{OpText{Text: "one"}},
				{OpText{Text: "two"}},
			},
		},
		{
			name: "knows name branch stands alone",
			line: Line{Cmd(IfElseKnowsName), Text("Hello again "), Cmd(AvatarsName), Cmd(StartNewSection), Text("Who art thou?")},
			expected: []Section{
				{OpIfKnowsName{}},
				{OpText{Text: "Hello again "}, OpAvatarName{}},
				{OpText{Text: "Who art thou?"}},
			},
		},
		{
			name: "label jump stands alone",
			line: Line{Text("Follow me. "), LabelItem(2), Text("unreached")},
			expected: []Section{
				{OpText{Text: "Follow me. "}},
				{OpGoto{Label: 2}},
				{OpText{Text: "unreached"}},
			},
		},
		{
			name: "label start pairs with its id",
			line: Line{Cmd(StartLabelDefinition), LabelItem(4), Text("Dost thou agree?")},
			expected: []Section{
				{OpLabelStart{Label: 4}},
				{OpText{Text: "Dost thou agree?"}},
			},
		},
		{
			name: "change takes its item from the next command",
			line: Line{Text("Take this."), Cmd(Change), Cmd(KarmaPlusOne), Text("Use it well.")},
			expected: []Section{
				{OpText{Text: "Take this."}},
				{OpChange{Item: int(KarmaPlusOne)}},
				{OpText{Text: "Use it well."}},
			},
		},
		{
			name: "change consumes a following label code",
			line: Line{Cmd(Change), LabelItem(2), Text("Farewell")},
			expected: []Section{
				{OpChange{Item: 0x93}},
				{OpText{Text: "Farewell"}},
			},
		},
		{
			name: "forwarded and no-op commands",
			line: Line{Cmd(Pause), Cmd(KarmaMinusOne), Cmd(CallGuards), Cmd(DoNothingSection)},
			expected: []Section{
				{OpForward{Command: Pause}, OpForward{Command: KarmaMinusOne}, OpForward{Command: CallGuards}},
				{OpNoop{Command: DoNothingSection}},
			},
		},
		{
			name:     "empty line",
			line:     Line{},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections, err := Split(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sections)
		})
	}
}

func TestSplit_Errors(t *testing.T) {
	tests := []struct {
		name string
		line Line
	}{
		{"or in an executed line", Line{Text("a"), Cmd(Or)}},
		{"gold without amount", Line{Cmd(Gold)}},
		{"gold with short amount", Line{Cmd(Gold), Text("10")}},
		{"gold with non-numeric amount", Line{Cmd(Gold), Text("abc")}},
		{"label definition without id", Line{Cmd(StartLabelDefinition)}},
		{"change without item number", Line{Text("Here."), Cmd(Change)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split(tt.line)
			if err == nil {
				t.Errorf("Expected an error splitting %s", tt.line)
			}
		})
	}

	_, err := Split(Line{Cmd(Or)})
	assert.True(t, errors.Is(err, ErrNotExecutable))
}

func TestSection_Queries(t *testing.T) {
	sections, err := Split(Line{Cmd(StartLabelDefinition), LabelItem(1), Text("Hi "), Cmd(AvatarsName), Cmd(AskName)})
	require.NoError(t, err)
	require.Len(t, sections, 2)

	id, ok := sections[0].LabelStart()
	assert.True(t, ok)
	assert.Equal(t, 1, id)

	_, ok = sections[1].LabelStart()
	assert.False(t, ok)
	assert.True(t, sections[1].MentionsAvatar())
	assert.True(t, sections[1].AsksName())
	assert.False(t, sections[0].MentionsAvatar())
}

func TestCommand_Text(t *testing.T) {
	assert.Equal(t, "EndConversation", EndConversation.String())
	assert.Equal(t, "Command(0x9C)", Command(0x9C).String())

	b, err := Gold.MarshalText()
	require.NoError(t, err)

	var c Command
	require.NoError(t, c.UnmarshalText(b))
	assert.Equal(t, Gold, c)

	assert.Error(t, c.UnmarshalText([]byte("NotACommand")))
}
