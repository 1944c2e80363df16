package gamedata

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTalkFile(t *testing.T) {
	scripts := testScripts()
	got, err := ParseTalkFile(tlkBytes(scripts))
	require.NoError(t, err)
	require.Len(t, got, len(scripts))
	for id, want := range scripts {
		assert.Equal(t, want, got[id], "npc %d", id)
	}
}

func TestParseTalkFile_OutOfOrderOffsets(t *testing.T) {
	a := scriptBytes("first")
	b := scriptBytes("second one")

	data := make([]byte, 10)
	binary.LittleEndian.PutUint16(data, 2)
	// npc 7 is listed first but stored second
	binary.LittleEndian.PutUint16(data[2:], 7)
	binary.LittleEndian.PutUint16(data[4:], uint16(10+len(a)))
	binary.LittleEndian.PutUint16(data[6:], 4)
	binary.LittleEndian.PutUint16(data[8:], 10)
	data = append(append(data, a...), b...)

	got, err := ParseTalkFile(data)
	require.NoError(t, err)
	assert.Equal(t, a, got[4])
	assert.Equal(t, b, got[7])
}

func TestParseTalkFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"table overruns file", []byte{0x05, 0x00, 0x01, 0x00}},
		{"offset inside table", []byte{0x01, 0x00, 0x01, 0x00, 0x02, 0x00}},
		{"offset beyond file", []byte{0x01, 0x00, 0x01, 0x00, 0xFF, 0x00}},
		{"duplicate npc", []byte{0x02, 0x00, 0x01, 0x00, 0x0A, 0x00, 0x01, 0x00, 0x0B, 0x00, 0xC1, 0xC2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTalkFile(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestMasterFile(t *testing.T) {
	assert.Equal(t, "TOWNE.TLK", Towne.Filename())
	assert.Equal(t, "DWELLING.TLK", Dwelling.Filename())
	assert.Equal(t, "castle", Castle.String())
	assert.Equal(t, "MasterFile(9)", MasterFile(9).String())

	for _, in := range []string{"keep", "KEEP", "Keep.tlk"} {
		m, err := ParseMasterFile(in)
		require.NoError(t, err, in)
		assert.Equal(t, Keep, m)
	}
	_, err := ParseMasterFile("dungeon")
	assert.Error(t, err)
}

func TestLoadTalkFile(t *testing.T) {
	dir := writeGameDir(t)

	scripts, err := LoadTalkFile(dir, Towne)
	require.NoError(t, err)
	assert.Len(t, scripts, 3)

	require.NoError(t, os.Remove(filepath.Join(dir, Keep.Filename())))
	_, err = LoadTalkFile(dir, Keep)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
