package gamedata

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/jwebster45206/talk-engine/pkg/conversation"
)

// DataOvlFilename is the overlay holding the game's shared strings.
const DataOvlFilename = "DATA.OVL"

const (
	compressedWordsOffset = 0x104c
	compressedWordsLength = 0x24e

	phrasesOffset = 0x9338
	phrasesLength = 0x1cc
)

// Indexes into the common talking responses list.
const (
	phraseCantJoin1     = 0x02
	phraseCantJoin2     = 0x03
	phraseMyNameIs      = 0x05
	phraseYourInterest  = 0x07
	phraseCannotHelp    = 0x09
	phraseYouRespond    = 0x0A
	phraseWhatYouSay    = 0x0B
	phraseWhatsYourName = 0x0C
	phraseIfSaySo       = 0x0E
	phrasePleasure      = 0x0F
	phraseYouSee        = 0x11
	phraseIAmCalled     = 0x12
)

// DataOvl is the raw contents of DATA.OVL.
type DataOvl struct {
	data []byte
}

// ReadDataOvl loads DATA.OVL from path. A directory is accepted and the
// standard file name appended.
func ReadDataOvl(path string) (*DataOvl, error) {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, DataOvlFilename)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read data overlay")
	}
	return NewDataOvl(data), nil
}

// NewDataOvl wraps bytes already in memory.
func NewDataOvl(data []byte) *DataOvl {
	return &DataOvl{data: data}
}

// StringList reads the null-separated strings in data[offset:offset+length].
// Runs of nulls are skipped, so empty strings never appear.
func (d *DataOvl) StringList(offset, length int) ([]string, error) {
	if offset < 0 || length < 0 || offset+length > len(d.data) {
		return nil, errors.Errorf("string list 0x%x+0x%x outside %d byte overlay", offset, length, len(d.data))
	}
	var out []string
	for _, part := range bytes.Split(d.data[offset:offset+length], []byte{0}) {
		if len(part) > 0 {
			out = append(out, string(part))
		}
	}
	return out, nil
}

// CompressedWords returns the word list referenced by .tlk word codes.
func (d *DataOvl) CompressedWords() ([]string, error) {
	words, err := d.StringList(compressedWordsOffset, compressedWordsLength)
	if err != nil {
		return nil, errors.Wrap(err, "compressed words")
	}
	return words, nil
}

// Phrases returns the stock conversation lines. Each is trimmed and
// stripped of its quotes. The two halves of the party-full refusal keep the
// separator and newline they carry in play.
func (d *DataOvl) Phrases() (conversation.Phrases, error) {
	list, err := d.StringList(phrasesOffset, phrasesLength)
	if err != nil {
		return conversation.Phrases{}, errors.Wrap(err, "conversation phrases")
	}
	if len(list) <= phraseIAmCalled {
		return conversation.Phrases{}, errors.Errorf("conversation phrases: want %d entries, have %d", phraseIAmCalled+1, len(list))
	}
	get := func(i int) string {
		return strings.Trim(strings.TrimSpace(list[i]), `"`)
	}
	return conversation.Phrases{
		YouSee:        get(phraseYouSee),
		WhatsYourName: get(phraseWhatsYourName),
		Pleasure:      get(phrasePleasure),
		IfSaySo:       get(phraseIfSaySo),
		CantJoin1:     get(phraseCantJoin1) + " ",
		CantJoin2:     get(phraseCantJoin2) + "\n",
		CannotHelp:    get(phraseCannotHelp),
		MyNameIs:      get(phraseMyNameIs),
		WhatYouSay:    get(phraseWhatYouSay),
		YourInterest:  get(phraseYourInterest),
		YouRespond:    get(phraseYouRespond),
		IAmCalled:     get(phraseIAmCalled),
	}, nil
}
