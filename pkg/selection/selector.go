package selection

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/japaniel/textselect/pkg/corpus"
)

// TieBreak chooses what happens when a candidate ties the best primary
// score and wins on the secondary score.
type TieBreak int

const (
	// TieBreakUpdate makes the tie winner the new best candidate.
	TieBreakUpdate TieBreak = iota
	// TieBreakLiteral reassigns only the best score and keeps the earlier
	// candidate, matching the historical behaviour of the tool.
	TieBreakLiteral
)

func (t TieBreak) String() string {
	if t == TieBreakLiteral {
		return "literal"
	}
	return "update"
}

// Outcome is the terminal state of a run.
type Outcome int

const (
	// Covered means every wanted unit reached the threshold.
	Covered Outcome = iota + 1
	// Exhausted means no unselected utterance scored above zero.
	Exhausted
	// BudgetReached means the word limit was exceeded.
	BudgetReached
)

func (o Outcome) String() string {
	switch o {
	case Covered:
		return "covered"
	case Exhausted:
		return "exhausted"
	case BudgetReached:
		return "budget-reached"
	default:
		return "running"
	}
}

// Pick describes one selection round.
type Pick struct {
	Rank          int
	Text          string
	Score         float64
	WordsSelected int
	Remaining     int
}

// Result is the output of a finished run.
type Result struct {
	Selected      *corpus.Store
	Uncovered     []string
	Outcome       Outcome
	Iterations    int
	WordsSelected int
}

// Selector runs the greedy coverage loop over a source corpus.
type Selector struct {
	Source    *corpus.Store
	Threshold int
	// WordLimit stops the run once more than this many words are selected.
	// It applies only when HasBudget is set.
	WordLimit int
	HasBudget bool
	TieBreak  TieBreak
	// Logger prints per-round feedback. nil means no logging.
	Logger *log.Logger
	// OnSelect is called after every round.
	OnSelect func(Pick)

	wanted    map[string]struct{}
	reference map[string]int
	selected  *corpus.Store
	done      bool
}

// New creates a selector over source that tries to cover each unit in units
// at least threshold times. A nil reference snapshots the current unselected
// unit counts of source.
func New(source *corpus.Store, units []string, threshold int, reference map[string]int) (*Selector, error) {
	if source == nil {
		return nil, fmt.Errorf("source corpus must be non-nil")
	}
	if threshold < 1 {
		return nil, fmt.Errorf("unit threshold must be >= 1, got %d", threshold)
	}
	wanted := make(map[string]struct{}, len(units))
	for _, u := range units {
		wanted[u] = struct{}{}
	}
	ref := make(map[string]int)
	if reference == nil {
		reference = source.UnselectedFreqs()
	}
	for u, c := range reference {
		ref[u] = c
	}
	return &Selector{
		Source:    source,
		Threshold: threshold,
		wanted:    wanted,
		reference: ref,
	}, nil
}

// NewWordLimit is New with a word budget.
func NewWordLimit(source *corpus.Store, units []string, threshold, wordLimit int, reference map[string]int) (*Selector, error) {
	if wordLimit < 0 {
		return nil, fmt.Errorf("word limit must be >= 0, got %d", wordLimit)
	}
	s, err := New(source, units, threshold, reference)
	if err != nil {
		return nil, err
	}
	s.WordLimit = wordLimit
	s.HasBudget = true
	return s, nil
}

// Wanted returns the units still lacking coverage, sorted.
func (s *Selector) Wanted() []string {
	out := make([]string, 0, len(s.wanted))
	for u := range s.wanted {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Run selects utterances until every wanted unit is covered, no candidate
// contributes anything, or the word budget is exceeded. A selector runs once.
func (s *Selector) Run(ctx context.Context) (*Result, error) {
	if s.done {
		return nil, fmt.Errorf("selector already ran")
	}
	s.done = true
	s.selected = corpus.New()

	res := &Result{Selected: s.selected}
	if len(s.wanted) == 0 {
		res.Outcome = Covered
		return res, nil
	}

	limit := s.Source.Len()
	for i := 1; i <= limit; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		best, score := s.best()
		if score == 0 {
			res.Outcome = Exhausted
			break
		}

		s.selected.Append(best.Text, best.Freqs)
		if err := s.selected.Stamp(best.Text, i, score); err != nil {
			return nil, err
		}
		if err := s.Source.MarkSelected(best.Text); err != nil {
			return nil, err
		}
		res.Iterations = i
		res.WordsSelected += WordCount(best.Text)

		for u := range s.wanted {
			if have, ok := s.selected.UnselectedFreq(u); ok && have >= s.Threshold {
				delete(s.wanted, u)
			}
		}

		s.report(Pick{Rank: i, Text: best.Text, Score: score, WordsSelected: res.WordsSelected, Remaining: len(s.wanted)})

		if len(s.wanted) == 0 {
			res.Outcome = Covered
			break
		}
		if s.HasBudget && res.WordsSelected > s.WordLimit {
			res.Outcome = BudgetReached
			break
		}
	}
	if res.Outcome == 0 {
		// Every utterance was taken without covering the wanted set.
		res.Outcome = Exhausted
	}
	res.Uncovered = s.Wanted()
	return res, nil
}

// best scans the unselected utterances in corpus order and returns the
// winner of this round and its primary score.
func (s *Selector) best() (*corpus.Utterance, float64) {
	var (
		best      *corpus.Utterance
		bestScore float64
	)
	for _, utt := range s.Source.Unselected() {
		score := Primary(utt, s.wanted, s.reference)
		switch {
		case score == bestScore && score != 0:
			if Secondary(utt, s.selected) > Secondary(best, s.selected) {
				bestScore = score
				if s.TieBreak == TieBreakUpdate {
					best = utt
				}
			}
		case score > bestScore:
			best, bestScore = utt, score
		}
	}
	return best, bestScore
}

func (s *Selector) report(p Pick) {
	if s.Logger != nil {
		if s.HasBudget {
			s.Logger.Printf("selected %d (words %d, %d units wanted): %q score=%.6f", p.Rank, p.WordsSelected, p.Remaining, p.Text, p.Score)
		} else {
			s.Logger.Printf("selected %d (%d units wanted): %q score=%.6f", p.Rank, p.Remaining, p.Text, p.Score)
		}
	}
	if s.OnSelect != nil {
		s.OnSelect(p)
	}
}

// WordCount returns the number of whitespace-delimited tokens in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
