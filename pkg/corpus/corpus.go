package corpus

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNotFound is returned when an operation names a text the store does not hold.
	ErrNotFound = errors.New("utterance not in corpus")
	// ErrAlreadyStamped is returned when rank and score are set twice.
	ErrAlreadyStamped = errors.New("utterance already stamped")
)

// Utterance is a single candidate sentence with its unit counts.
type Utterance struct {
	Text  string
	Freqs map[string]int
	// Units lists the keys of Freqs in sorted order.
	Units    []string
	NumUnits int
	Selected bool

	// Rank and Score are set once, when the utterance wins a selection round.
	Rank    int
	Score   float64
	stamped bool
}

// Store holds utterances keyed by text together with a running total of
// unit counts over the unselected ones.
type Store struct {
	utts  []*Utterance
	index map[string]int
	// unselected[u] is the sum of Freqs[u] over all unselected utterances.
	unselected map[string]int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		index:      make(map[string]int),
		unselected: make(map[string]int),
	}
}

// Append inserts an utterance as unselected. A text that is already present
// is overwritten in place.
func (s *Store) Append(text string, freqs map[string]int) {
	own := make(map[string]int, len(freqs))
	units := make([]string, 0, len(freqs))
	total := 0
	for u, c := range freqs {
		own[u] = c
		units = append(units, u)
		total += c
	}
	sort.Strings(units)
	u := &Utterance{Text: text, Freqs: own, Units: units, NumUnits: total}

	if i, ok := s.index[text]; ok {
		old := s.utts[i]
		if !old.Selected {
			s.subtract(old.Freqs)
		}
		s.utts[i] = u
	} else {
		s.index[text] = len(s.utts)
		s.utts = append(s.utts, u)
	}
	s.add(own)
}

// MarkSelected moves text into the selected partition.
func (s *Store) MarkSelected(text string) error {
	u, ok := s.Get(text)
	if !ok {
		return fmt.Errorf("mark selected %q: %w", text, ErrNotFound)
	}
	if u.Selected {
		return nil
	}
	u.Selected = true
	s.subtract(u.Freqs)
	return nil
}

// MarkUnselected moves text back into the unselected partition.
func (s *Store) MarkUnselected(text string) error {
	u, ok := s.Get(text)
	if !ok {
		return fmt.Errorf("mark unselected %q: %w", text, ErrNotFound)
	}
	if !u.Selected {
		return nil
	}
	u.Selected = false
	s.add(u.Freqs)
	return nil
}

// Stamp records the selection rank and winning score of text.
func (s *Store) Stamp(text string, rank int, score float64) error {
	u, ok := s.Get(text)
	if !ok {
		return fmt.Errorf("stamp %q: %w", text, ErrNotFound)
	}
	if u.stamped {
		return fmt.Errorf("stamp %q: %w", text, ErrAlreadyStamped)
	}
	u.Rank, u.Score, u.stamped = rank, score, true
	return nil
}

func (s *Store) add(freqs map[string]int) {
	for u, c := range freqs {
		s.unselected[u] += c
	}
}

func (s *Store) subtract(freqs map[string]int) {
	for u, c := range freqs {
		s.unselected[u] -= c
	}
}

// Contains reports whether text is in the store.
func (s *Store) Contains(text string) bool {
	_, ok := s.index[text]
	return ok
}

// Get looks up an utterance by its text.
func (s *Store) Get(text string) (*Utterance, bool) {
	i, ok := s.index[text]
	if !ok {
		return nil, false
	}
	return s.utts[i], true
}

// Len returns the number of utterances.
func (s *Store) Len() int { return len(s.utts) }

// Utterances returns all utterances in insertion order.
func (s *Store) Utterances() []*Utterance {
	out := make([]*Utterance, len(s.utts))
	copy(out, s.utts)
	return out
}

// Unselected returns the unselected utterances in insertion order.
func (s *Store) Unselected() []*Utterance {
	return s.filter(false)
}

// Selected returns the selected utterances in insertion order.
func (s *Store) Selected() []*Utterance {
	return s.filter(true)
}

func (s *Store) filter(selected bool) []*Utterance {
	var out []*Utterance
	for _, u := range s.utts {
		if u.Selected == selected {
			out = append(out, u)
		}
	}
	return out
}

// UnselectedFreq returns the aggregate count of unit over unselected
// utterances and whether the unit has ever been seen by the store.
func (s *Store) UnselectedFreq(unit string) (int, bool) {
	c, ok := s.unselected[unit]
	return c, ok
}

// UnselectedFreqs returns a copy of the unselected aggregate.
func (s *Store) UnselectedFreqs() map[string]int {
	out := make(map[string]int, len(s.unselected))
	for u, c := range s.unselected {
		out[u] = c
	}
	return out
}

// Recount recomputes the unselected aggregate from the records.
// Units whose running total dropped to zero are kept with a zero count.
func (s *Store) Recount() map[string]int {
	out := make(map[string]int, len(s.unselected))
	for u := range s.unselected {
		out[u] = 0
	}
	for _, utt := range s.utts {
		if utt.Selected {
			continue
		}
		for u, c := range utt.Freqs {
			out[u] += c
		}
	}
	return out
}
