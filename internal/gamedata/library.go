package gamedata

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkg/errors"

	"github.com/jwebster45206/talk-engine/internal/metrics"
	"github.com/jwebster45206/talk-engine/pkg/conversation"
	"github.com/jwebster45206/talk-engine/pkg/talk"
)

// ErrNPCNotFound is returned when a master file has no script for an NPC.
var ErrNPCNotFound = errors.New("npc not found")

const (
	defaultCacheSize = 256
	defaultCacheTTL  = 30 * time.Minute
)

// Options tunes a Library.
type Options struct {
	CacheSize  int
	CacheTTL   time.Duration
	Language   string
	LocalesDir string
}

// Library serves built NPC scripts for every master file. Raw bytes are kept
// in memory; scripts are decoded on first use and cached.
type Library struct {
	words   *talk.WordTable
	list    []string
	phrases conversation.Phrases
	raw     map[MasterFile]map[int][]byte
	cache   *expirable.LRU[string, *talk.Script]
	logger  *slog.Logger

	mu       sync.Mutex
	building map[string]*sync.Mutex
}

// LoadLibrary reads DATA.OVL and the four .tlk files from dir.
func LoadLibrary(dir string, opts Options, logger *slog.Logger) (*Library, error) {
	ovl, err := ReadDataOvl(dir)
	if err != nil {
		return nil, err
	}
	words, err := ovl.CompressedWords()
	if err != nil {
		return nil, err
	}
	phrases, err := ovl.Phrases()
	if err != nil {
		return nil, err
	}

	raw := make(map[MasterFile]map[int][]byte, len(MasterFiles))
	for _, m := range MasterFiles {
		scripts, err := LoadTalkFile(dir, m)
		if err != nil {
			return nil, err
		}
		raw[m] = scripts
		logger.Info("Loaded talk file", "master", m.String(), "npcs", len(scripts))
	}
	return NewLibrary(words, phrases, raw, opts, logger)
}

// NewLibrary builds a library from data already in memory.
func NewLibrary(words []string, phrases conversation.Phrases, raw map[MasterFile]map[int][]byte, opts Options, logger *slog.Logger) (*Library, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	localized, err := LoadPhrases(opts.LocalesDir, opts.Language, phrases.Merge(conversation.DefaultPhrases()))
	if err != nil {
		return nil, err
	}

	return &Library{
		words:    talk.NewWordTable(words),
		list:     words,
		phrases:  localized,
		raw:      raw,
		cache:    expirable.NewLRU[string, *talk.Script](size, nil, ttl),
		logger:   logger,
		building: make(map[string]*sync.Mutex),
	}, nil
}

func cacheKey(master MasterFile, npc int) string {
	return fmt.Sprintf("%s:%d", master, npc)
}

// Script returns the built script for an NPC.
func (l *Library) Script(master MasterFile, npc int) (*talk.Script, error) {
	key := cacheKey(master, npc)
	if s, ok := l.cache.Get(key); ok {
		metrics.ScriptCacheHits.Inc()
		return s, nil
	}

	data, ok := l.raw[master][npc]
	if !ok {
		return nil, errors.Wrapf(ErrNPCNotFound, "%s npc %d", master, npc)
	}

	// One build per key at a time.
	lock := l.keyLock(key)
	lock.Lock()
	defer lock.Unlock()
	if s, ok := l.cache.Get(key); ok {
		return s, nil
	}

	s, err := l.build(data)
	if err != nil {
		metrics.ScriptDecodeFailures.WithLabelValues(master.String()).Inc()
		l.logger.Warn("Failed to build script", "master", master.String(), "npc", npc, "error", err)
		return nil, errors.Wrapf(err, "%s npc %d", master, npc)
	}
	l.cache.Add(key, s)
	return s, nil
}

func (l *Library) keyLock(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.building[key]
	if !ok {
		m = &sync.Mutex{}
		l.building[key] = m
	}
	return m
}

func (l *Library) build(data []byte) (*talk.Script, error) {
	lines, err := talk.Decode(data, l.words)
	if err != nil {
		return nil, err
	}
	return talk.Build(lines)
}

// NPCs returns the NPC indexes with scripts in a master file, ascending.
func (l *Library) NPCs(master MasterFile) []int {
	ids := make([]int, 0, len(l.raw[master]))
	for id := range l.raw[master] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Raw returns the undecoded bytes of an NPC's script.
func (l *Library) Raw(master MasterFile, npc int) ([]byte, bool) {
	data, ok := l.raw[master][npc]
	return data, ok
}

// Phrases returns the stock conversation lines, localized when configured.
func (l *Library) Phrases() conversation.Phrases {
	return l.phrases
}

// Words returns the compressed word list.
func (l *Library) Words() []string {
	return append([]string(nil), l.list...)
}

// Dictionary returns the word table scripts are decoded with.
func (l *Library) Dictionary() talk.Dictionary {
	return l.words
}
