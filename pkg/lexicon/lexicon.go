package lexicon

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Entry is one pronunciation override.
type Entry struct {
	Word    string `json:"word"`
	Reading string `json:"reading"`
}

// Lexicon maps written forms to readings that take precedence over the
// tokenizer's own readings.
type Lexicon struct {
	// index is read concurrently by phonetize workers.
	mu    sync.RWMutex
	index map[string]string
}

// New builds a lexicon from entries. Later entries for the same word win.
// Readings are stored in katakana.
func New(entries []Entry) *Lexicon {
	idx := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Word == "" || e.Reading == "" {
			continue
		}
		idx[e.Word] = ToKatakana(e.Reading)
	}
	return &Lexicon{index: idx}
}

// Load reads a JSON lexicon file, either {"entries": [...]} or a bare array.
func Load(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Entries stays nil unless the "entries" key is present.
	var wrapped struct {
		Entries *[]Entry `json:"entries"`
	}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&wrapped); err == nil && wrapped.Entries != nil {
		return New(*wrapped.Entries), nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	var entries []Entry
	dec = json.NewDecoder(f)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon as object or array: %w", err)
	}
	return New(entries), nil
}

// Len returns the number of entries.
func (l *Lexicon) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.index)
}

// Lookup returns the override reading for surface, falling back to lemma.
func (l *Lexicon) Lookup(surface, lemma string) (string, bool) {
	if l == nil {
		return "", false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if r, ok := l.index[surface]; ok {
		return r, true
	}
	if lemma == "" {
		return "", false
	}
	r, ok := l.index[lemma]
	return r, ok
}

// ToKatakana converts Hiragana to Katakana.
func ToKatakana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x3041 && r <= 0x3096 {
			runes[i] = r + 0x60
		}
	}
	return string(runes)
}

// IsKana reports whether s is non-empty and made only of kana and the
// prolonged sound mark.
func IsKana(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 0x3041 && r <= 0x3096:
		case r >= 0x30A1 && r <= 0x30FA:
		case r == 0x30FC:
		default:
			return false
		}
	}
	return true
}
