package gamedata

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// encode writes s using the literal character byte ranges of .tlk files.
func encode(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		out = append(out, s[i]+0x80)
	}
	return out
}

// scriptBytes encodes each line as literal text ending in a zero byte.
func scriptBytes(lines ...string) []byte {
	var out []byte
	for _, l := range lines {
		out = append(out, encode(l)...)
		out = append(out, 0x00)
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

func tlkBytes(scripts map[int][]byte) []byte {
	ids := make([]int, 0, len(scripts))
	for id := range scripts {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	header := make([]byte, 2+4*len(ids))
	binary.LittleEndian.PutUint16(header, uint16(len(ids)))
	offset := len(header)
	var body []byte
	for i, id := range ids {
		binary.LittleEndian.PutUint16(header[2+4*i:], uint16(id))
		binary.LittleEndian.PutUint16(header[4+4*i:], uint16(offset))
		body = append(body, scripts[id]...)
		offset += len(scripts[id])
	}
	return append(header, body...)
}

func testWords() []string {
	return []string{"thee", "thou", "Britannia"}
}

func testPhraseList() []string {
	list := make([]string, 0x13)
	for i := range list {
		list[i] = fmt.Sprintf("phrase%d", i)
	}
	list[phraseCantJoin1] = "Thou hast no room for me in thy party!"
	list[phraseCantJoin2] = "Seek me again if one of thy members doth leave thee."
	list[phraseMyNameIs] = "My name is"
	list[phraseYourInterest] = "Your interest:"
	list[phraseCannotHelp] = "I cannot help thee with that."
	list[phraseYouRespond] = "You respond:"
	list[phraseWhatYouSay] = `"What didst thou say?"`
	list[phraseWhatsYourName] = "What is thy name?"
	list[phraseIfSaySo] = "If thou sayest so..."
	list[phrasePleasure] = `"A pleasure!"`
	list[phraseYouSee] = "  You see "
	list[phraseIAmCalled] = `"I am called`
	return list
}

func putStrings(dst []byte, offset int, strs []string) {
	copy(dst[offset:], strings.Join(strs, "\x00")+"\x00")
}

func dataOvlBytes() []byte {
	data := make([]byte, phrasesOffset+phrasesLength)
	putStrings(data, compressedWordsOffset, testWords())
	putStrings(data, phrasesOffset, testPhraseList())
	return data
}

func testScripts() map[int][]byte {
	return map[int][]byte{
		1: scriptBytes("Iolo", "a bard with a lute", "Well met!", "I play music.", "Farewell."),
		2: join(
			scriptBytes("Shamino", "a ranger", "Hail."),
			encode("I guard"), []byte{0x01, 0x00},
			scriptBytes("Farewell."),
		),
		3: scriptBytes("Broken", "a mess"),
	}
}

// writeGameDir lays out DATA.OVL and the four .tlk files in a temp dir.
func writeGameDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	write := func(name string, data []byte) {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	write(DataOvlFilename, dataOvlBytes())
	write(Towne.Filename(), tlkBytes(testScripts()))
	for _, m := range []MasterFile{Castle, Dwelling, Keep} {
		write(m.Filename(), tlkBytes(map[int][]byte{
			0: scriptBytes(m.String()+" guard", "a guard", "Halt!", "I stand watch.", "Move along."),
		}))
	}
	return dir
}
