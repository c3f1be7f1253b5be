package selection

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/japaniel/textselect/pkg/corpus"
)

// UnitCount is one row of a unit frequency table.
type UnitCount struct {
	Unit  string
	Count int
}

// Ranked returns the stamped utterances of selected ordered by rank.
func Ranked(selected *corpus.Store) []*corpus.Utterance {
	utts := selected.Utterances()
	sort.SliceStable(utts, func(i, j int) bool { return utts[i].Rank < utts[j].Rank })
	return utts
}

// SortedFreqs orders a frequency table by count ascending, then by unit.
func SortedFreqs(freqs map[string]int) []UnitCount {
	out := make([]UnitCount, 0, len(freqs))
	for u, c := range freqs {
		out = append(out, UnitCount{Unit: u, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count < out[j].Count
		}
		return out[i].Unit < out[j].Unit
	})
	return out
}

// WriteSelectedText writes the selected utterances one per line in rank order.
func WriteSelectedText(w io.Writer, selected *corpus.Store) error {
	bw := bufio.NewWriter(w)
	for _, u := range Ranked(selected) {
		if _, err := fmt.Fprintln(bw, u.Text); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteUnitFreqs writes "unit count" lines sorted by count ascending.
func WriteUnitFreqs(w io.Writer, freqs map[string]int) error {
	bw := bufio.NewWriter(w)
	for _, uc := range SortedFreqs(freqs) {
		if _, err := fmt.Fprintf(bw, "%s %d\n", uc.Unit, uc.Count); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteUncovered writes units one per line. The caller passes them sorted.
func WriteUncovered(w io.Writer, units []string) error {
	bw := bufio.NewWriter(w)
	for _, u := range units {
		if _, err := fmt.Fprintln(bw, u); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// OutputPaths names the three result files of a selection run.
type OutputPaths struct {
	SelectedText      string
	SelectedUnitFreqs string
	Uncovered         string
}

// WriteFiles writes all three result files for res.
func WriteFiles(paths OutputPaths, res *Result) error {
	if err := writeFile(paths.SelectedText, func(w io.Writer) error {
		return WriteSelectedText(w, res.Selected)
	}); err != nil {
		return fmt.Errorf("write selected text: %w", err)
	}
	if err := writeFile(paths.SelectedUnitFreqs, func(w io.Writer) error {
		return WriteUnitFreqs(w, res.Selected.UnselectedFreqs())
	}); err != nil {
		return fmt.Errorf("write selected unit freqs: %w", err)
	}
	if err := writeFile(paths.Uncovered, func(w io.Writer) error {
		return WriteUncovered(w, res.Uncovered)
	}); err != nil {
		return fmt.Errorf("write uncovered units: %w", err)
	}
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
