package gamedata

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataOvl_StringList(t *testing.T) {
	ovl := NewDataOvl([]byte("\x00\x00alpha\x00beta\x00\x00gamma\x00tail"))

	got, err := ovl.StringList(0, 19)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, got)

	_, err = ovl.StringList(20, 10)
	assert.Error(t, err)
	_, err = ovl.StringList(-1, 2)
	assert.Error(t, err)
}

func TestDataOvl_CompressedWords(t *testing.T) {
	words, err := NewDataOvl(dataOvlBytes()).CompressedWords()
	require.NoError(t, err)
	assert.Equal(t, testWords(), words)
}

func TestDataOvl_Phrases(t *testing.T) {
	p, err := NewDataOvl(dataOvlBytes()).Phrases()
	require.NoError(t, err)

	assert.Equal(t, "You see", p.YouSee)
	assert.Equal(t, "I am called", p.IAmCalled)
	assert.Equal(t, "What didst thou say?", p.WhatYouSay)
	assert.Equal(t, "A pleasure!", p.Pleasure)
	assert.Equal(t, "Your interest:", p.YourInterest)
	assert.Equal(t, "Thou hast no room for me in thy party! Seek me again if one of thy members doth leave thee.\n",
		p.CantJoin1+p.CantJoin2)
}

func TestDataOvl_PhrasesTooFew(t *testing.T) {
	data := make([]byte, phrasesOffset+phrasesLength)
	putStrings(data, phrasesOffset, []string{"one", "two"})
	_, err := NewDataOvl(data).Phrases()
	assert.Error(t, err)
}

func TestReadDataOvl(t *testing.T) {
	dir := writeGameDir(t)

	fromDir, err := ReadDataOvl(dir)
	require.NoError(t, err)
	fromFile, err := ReadDataOvl(filepath.Join(dir, DataOvlFilename))
	require.NoError(t, err)
	assert.Equal(t, fromDir, fromFile)

	_, err = ReadDataOvl(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
