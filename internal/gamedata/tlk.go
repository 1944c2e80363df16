package gamedata

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// MasterFile names one of the four small-map master files. Each has its own
// .tlk conversation file.
type MasterFile int

const (
	Castle MasterFile = iota
	Towne
	Dwelling
	Keep
)

// MasterFiles lists every master file in load order.
var MasterFiles = []MasterFile{Castle, Towne, Dwelling, Keep}

var masterNames = map[MasterFile]string{
	Castle:   "castle",
	Towne:    "towne",
	Dwelling: "dwelling",
	Keep:     "keep",
}

func (m MasterFile) String() string {
	if name, ok := masterNames[m]; ok {
		return name
	}
	return fmt.Sprintf("MasterFile(%d)", int(m))
}

// Filename returns the .tlk file name as shipped with the game.
func (m MasterFile) Filename() string {
	return strings.ToUpper(m.String()) + ".TLK"
}

// ParseMasterFile accepts a master name in any case, with or without the
// .tlk extension.
func ParseMasterFile(s string) (MasterFile, error) {
	name := strings.TrimSuffix(strings.ToLower(s), ".tlk")
	for m, n := range masterNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown master file %q", s)
}

const tlkEntrySize = 4 // uint16 npc index, uint16 file offset

type tlkEntry struct {
	npc    int
	offset int
}

// ParseTalkFile splits a .tlk file into the raw script bytes of each NPC.
// The file opens with a little-endian entry count followed by (npc, offset)
// pairs; each script runs to the next offset or the end of the file.
func ParseTalkFile(data []byte) (map[int][]byte, error) {
	if len(data) < 2 {
		return nil, errors.New("talk file too short for header")
	}
	count := int(binary.LittleEndian.Uint16(data))
	tableEnd := 2 + count*tlkEntrySize
	if tableEnd > len(data) {
		return nil, errors.Errorf("talk file declares %d entries but holds %d bytes", count, len(data))
	}

	entries := make([]tlkEntry, 0, count)
	for i := 2; i < tableEnd; i += tlkEntrySize {
		e := tlkEntry{
			npc:    int(binary.LittleEndian.Uint16(data[i:])),
			offset: int(binary.LittleEndian.Uint16(data[i+2:])),
		}
		if e.offset < tableEnd || e.offset > len(data) {
			return nil, errors.Errorf("npc %d offset 0x%x outside script area", e.npc, e.offset)
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(a, b int) bool { return entries[a].offset < entries[b].offset })

	scripts := make(map[int][]byte, count)
	for i, e := range entries {
		end := len(data)
		if i+1 < len(entries) {
			end = entries[i+1].offset
		}
		if _, dup := scripts[e.npc]; dup {
			return nil, errors.Errorf("npc %d listed twice", e.npc)
		}
		chunk := make([]byte, end-e.offset)
		copy(chunk, data[e.offset:end])
		scripts[e.npc] = chunk
	}
	return scripts, nil
}

// LoadTalkFile reads and splits the .tlk file for a master file in dir.
func LoadTalkFile(dir string, master MasterFile) (map[int][]byte, error) {
	path := filepath.Join(dir, master.Filename())
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	scripts, err := ParseTalkFile(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return scripts, nil
}
