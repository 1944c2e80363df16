package talk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encode writes s using the literal character byte ranges.
func encode(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		out = append(out, s[i]+0x80)
	}
	return out
}

func join(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestDecode_LiteralText(t *testing.T) {
	lines, err := Decode(join(encode("Hello there, traveller!"), []byte{0x00}), MapDictionary{})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Len(t, lines[0], 1)
	assert.Equal(t, PlainString, lines[0][0].Command)
	assert.Equal(t, "Hello there, traveller!", lines[0][0].Text)
}

func TestDecode(t *testing.T) {
	dict := MapDictionary{0x01: "the", 0x02: "Avatar"}

	tests := []struct {
		name     string
		input    []byte
		expected []Line
	}{
		{
			name:     "compressed word after literal gets a space",
			input:    join(encode("Hail"), []byte{0x02, 0x00}),
			expected: []Line{{Text("Hail Avatar ")}},
		},
		{
			name:     "consecutive compressed words",
			input:    []byte{0x01, 0x02, 0x00},
			expected: []Line{{Text("the Avatar ")}},
		},
		{
			name:     "phrase terminator is dropped",
			input:    join(encode("job@"), []byte{0x00}),
			expected: []Line{{Text("job")}},
		},
		{
			name:     "command flushes pending text",
			input:    join(encode("Fare thee well"), []byte{0x82, 0x00}),
			expected: []Line{{Text("Fare thee well "), Cmd(EndConversation)}},
		},
		{
			name:     "label definition line",
			input:    []byte{0x90, 0x91 + 3, 0x00},
			expected: []Line{{Cmd(StartLabelDefinition), LabelItem(3)}},
		},
		{
			name:     "label jump decodes as define label",
			input:    join(encode("Aye"), []byte{0x91}, encode("ok"), []byte{0x00}),
			expected: []Line{{Text("Aye "), LabelItem(0), Text("ok")}},
		},
		{
			name:     "gold takes three characters",
			input:    join([]byte{0x85}, encode("100Thanks"), []byte{0x00}),
			expected: []Line{{Cmd(Gold), Text("100"), Text("Thanks")}},
		},
		{
			name:     "change decodes as a single item",
			input:    []byte{0x86, 0x84, 0x00},
			expected: []Line{{Cmd(Change), Cmd(JoinParty)}},
		},
		{
			name:  "change before terminator ends the line",
			input: join([]byte{0x86, 0x00}, encode("Hi"), []byte{0x00}),
			expected: []Line{
				{Cmd(Change)},
				{Text("Hi")},
			},
		},
		{
			name:     "change before label keeps the label",
			input:    join([]byte{0x86, 0x91}, encode("ok"), []byte{0x00}),
			expected: []Line{{Cmd(Change), LabelItem(0), Text("ok")}},
		},
		{
			name:  "embedded null after charity phrase",
			input: join(encode("Wilt thou give to give unto charity!"), []byte{0x00}, encode("Yes"), []byte{0x00}),
			expected: []Line{
				{Text("Wilt thou give to give unto charity!\nYes")},
			},
		},
		{
			name:  "zero byte splits lines",
			input: join(encode("one"), []byte{0x00}, encode("two"), []byte{0x00}),
			expected: []Line{
				{Text("one")},
				{Text("two")},
			},
		},
		{
			name:     "trailing bytes without a terminator form a line",
			input:    []byte{0x90, 0x9F},
			expected: []Line{{Cmd(StartLabelDefinition), Cmd(UnknownEnter)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := Decode(tt.input, dict)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, lines)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		err   error
	}{
		{"label id ten", []byte{0x9B, 0x00}, ErrLabelOutOfRange},
		{"unknown control byte", []byte{0x9C, 0x00}, ErrUnknownCode},
		{"raw goto byte", []byte{0xFD, 0x00}, ErrUnknownCode},
		{"compressed word missing from dictionary", []byte{0x03, 0x00}, ErrUnknownCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input, MapDictionary{0x01: "the"})
			require.Error(t, err)
			if !errors.Is(err, tt.err) {
				t.Errorf("Expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestWordTable_Lookup(t *testing.T) {
	words := make([]string, 120)
	for i := range words {
		words[i] = string(rune('A'+i%26)) + string(rune('a'+i/26))
	}
	table := NewWordTable(words)

	tests := []struct {
		code  byte
		index int
		found bool
	}{
		{1, 0, true},
		{7, 6, true},
		{8, 0, false},
		{9, 7, true},
		{28, 0, false},
		{29, 26, true},
		{66, 61, true},
		{67, 0, false},
		{71, 64, true},
		{72, 0, false},
		{76, 65, true},
		{128, 117, true},
		{129, 0, false},
		{0xE1, 0, false},
	}

	for _, tt := range tests {
		word, ok := table.Lookup(tt.code)
		if ok != tt.found {
			t.Errorf("code %d: expected found=%v, got %v", tt.code, tt.found, ok)
			continue
		}
		if ok && word != words[tt.index] {
			t.Errorf("code %d: expected %q, got %q", tt.code, words[tt.index], word)
		}
	}
}

func TestWordTable_ShortList(t *testing.T) {
	table := NewWordTable([]string{"a", "b"})
	_, ok := table.Lookup(76)
	assert.False(t, ok, "codes past the end of the list are not words")
	w, ok := table.Lookup(1)
	assert.True(t, ok)
	assert.Equal(t, "a", w)
}
