package db

import "time"

// Utterance is one phonetized line of a corpus.
type Utterance struct {
	Index int
	Text  string
	Units []string
}

// Run is a finished selection run.
type Run struct {
	ID            int64
	StartedAt     time.Time
	SourceText    string
	Threshold     int
	// WordLimit is negative when the run had no word budget.
	WordLimit     int
	TieBreak      string
	Outcome       string
	Iterations    int
	WordsSelected int
	Selected      []SelectedUtterance
	UnitFreqs     map[string]int
	Uncovered     []string
}

// SelectedUtterance is a ranked pick of a run.
type SelectedUtterance struct {
	Rank     int
	Text     string
	Score    float64
	NumUnits int
}
