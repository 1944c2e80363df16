package talk

// Dictionary resolves compressed word codes found in .tlk files.
type Dictionary interface {
	Lookup(code byte) (string, bool)
}

// WordTable maps .tlk byte codes onto the compressed word list stored in
// DATA.OVL. The codes are not contiguous: each span below is shifted by a
// fixed offset to land on its list index.
type WordTable struct {
	words   []string
	mapping map[byte]int
	span    int
}

type codeSpan struct {
	first, last byte
	offset      int
}

var wordSpans = []codeSpan{
	{1, 7, -1},
	{9, 27, -2},
	{29, 49, -3},
	{51, 64, -4},
	{66, 66, -5},
	{68, 69, -6},
	{71, 71, -7},
	{76, 129, -11},
}

// NewWordTable builds a table over the compressed word list.
func NewWordTable(words []string) *WordTable {
	t := &WordTable{
		words:   words,
		mapping: make(map[byte]int),
	}
	lo, hi := 255, 0
	for _, s := range wordSpans {
		for code := int(s.first); code <= int(s.last); code++ {
			t.mapping[byte(code)] = code + s.offset
			lo = min(lo, code)
			hi = max(hi, code)
		}
	}
	// Codes above the width of the mapped range are never words.
	t.span = hi - lo
	return t
}

// Lookup returns the word for a code, if the code names one.
func (t *WordTable) Lookup(code byte) (string, bool) {
	if int(code) > t.span {
		return "", false
	}
	idx, ok := t.mapping[code]
	if !ok || idx < 0 || idx >= len(t.words) {
		return "", false
	}
	return t.words[idx], true
}

// Len returns the number of words in the list.
func (t *WordTable) Len() int {
	return len(t.words)
}

// MapDictionary is a Dictionary keyed directly by code.
type MapDictionary map[byte]string

func (m MapDictionary) Lookup(code byte) (string, bool) {
	w, ok := m[code]
	return w, ok
}
