package talk

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownCode     = errors.New("unknown talk code")
	ErrLabelOutOfRange = errors.New("label id out of range")
)

const (
	endOfLine    byte = 0x00
	offsetAdjust byte = 0x80
	phraseEnd         = '@'
	goldDigits        = 3
)

// embeddedNullPhrases lists line endings known to be followed by a zero byte
// that is part of the text rather than a line terminator.
var embeddedNullPhrases = []string{
	"to give unto charity!",
}

func literal(b byte) (byte, bool) {
	switch {
	case b >= 165 && b <= 218, b >= 225 && b <= 250, b >= 160 && b <= 161:
		return b - offsetAdjust, true
	}
	return 0, false
}

type decoder struct {
	dict     Dictionary
	lines    []Line
	current  Line
	buf      strings.Builder
	typing   bool
	goldLeft int
}

// Decode turns the raw .tlk bytes for one NPC into script lines.
func Decode(data []byte, dict Dictionary) ([]Line, error) {
	d := &decoder{dict: dict}
	for offset, b := range data {
		if err := d.step(b); err != nil {
			return nil, fmt.Errorf("decode byte 0x%02X at offset %d: %w", b, offset, err)
		}
	}
	d.flush()
	if len(d.current) > 0 {
		d.lines = append(d.lines, d.current)
	}
	return d.lines, nil
}

func (d *decoder) step(b byte) error {
	if b == endOfLine && !d.endsWithEmbeddedNull() {
		d.flush()
		d.lines = append(d.lines, d.current)
		d.current = nil
		d.typing = false
		return nil
	}

	if b == endOfLine {
		d.buf.WriteByte('\n')
		return nil
	}

	if ch, ok := literal(b); ok {
		d.typing = true
		if ch == phraseEnd {
			return nil
		}
		d.buf.WriteByte(ch)
		if d.goldLeft > 0 {
			d.goldLeft--
			if d.goldLeft == 0 {
				d.flush()
			}
		}
		return nil
	}

	if d.typing {
		d.typing = false
		d.buf.WriteByte(' ')
	}

	if word, ok := d.dict.Lookup(b); ok {
		d.buf.WriteString(word)
		d.buf.WriteByte(' ')
		return nil
	}

	d.flush()

	if b >= MinLabel && b <= MaxLabel {
		id := int(b - MinLabel)
		if id >= TotalLabels {
			return fmt.Errorf("%w: %d", ErrLabelOutOfRange, id)
		}
		d.current = append(d.current, LabelItem(id))
		return nil
	}

	if !decodable(b) {
		return ErrUnknownCode
	}

	cmd := Command(b)
	d.current = append(d.current, Cmd(cmd))
	if cmd == Gold {
		d.goldLeft = goldDigits
	}
	return nil
}

func (d *decoder) flush() {
	if d.buf.Len() == 0 {
		return
	}
	d.current = append(d.current, Text(d.buf.String()))
	d.buf.Reset()
}

func (d *decoder) endsWithEmbeddedNull() bool {
	s := d.buf.String()
	for _, phrase := range embeddedNullPhrases {
		if strings.HasSuffix(s, phrase) {
			return true
		}
	}
	return false
}
