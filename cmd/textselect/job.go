package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Job describes one selection run. The same struct backs the select_simple
// flags and the TOML job files read by the run command.
type Job struct {
	SourceText        string `toml:"source-text"`
	Units             string `toml:"units"`
	WantedUnits       string `toml:"wanted-units"`
	MinWanted         int    `toml:"min-wanted"`
	// WordLimit is nil when the run has no word budget.
	WordLimit         *int   `toml:"word-limit"`
	SelectedText      string `toml:"selected-text"`
	SelectedUnitFreqs string `toml:"selected-unit-freqs"`
	Uncovered         string `toml:"uncovered"`

	Separator       string `toml:"separator"`
	Truncate        bool   `toml:"truncate"`
	LiteralTieBreak bool   `toml:"literal-tiebreak"`
	DB              string `toml:"db"`
	Quiet           bool   `toml:"quiet"`
}

// SetFlagDefinitions registers the optional settings on fs.
func (j *Job) SetFlagDefinitions(fs *flag.FlagSet) {
	fs.StringVar(&j.Separator, "sep", "", "unit separator in UNITSFILE (default: any whitespace)")
	fs.BoolVar(&j.Truncate, "truncate", false, "truncate to the shorter of SOURCETEXT and UNITSFILE instead of failing")
	fs.BoolVar(&j.LiteralTieBreak, "literal-tiebreak", false, "on score ties keep the earlier candidate and only raise the best score")
	fs.StringVar(&j.DB, "db", "", "record the run in this SQLite database")
	fs.BoolVar(&j.Quiet, "quiet", false, "do not print per-selection progress")
}

// Validate checks that every required path and number is set.
func (j *Job) Validate() error {
	var errs []error
	for _, f := range []struct{ name, value string }{
		{"source-text", j.SourceText},
		{"units", j.Units},
		{"wanted-units", j.WantedUnits},
		{"selected-text", j.SelectedText},
		{"selected-unit-freqs", j.SelectedUnitFreqs},
		{"uncovered", j.Uncovered},
	} {
		if f.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", f.name))
		}
	}
	if j.MinWanted < 1 {
		errs = append(errs, fmt.Errorf("min-wanted must be at least 1, got %d", j.MinWanted))
	}
	if j.WordLimit != nil && *j.WordLimit < 0 {
		errs = append(errs, fmt.Errorf("word-limit must not be negative, got %d", *j.WordLimit))
	}
	return errors.Join(errs...)
}

// LoadJob reads a TOML job file. Relative paths in the file are resolved
// against the file's directory.
func LoadJob(path string) (*Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var j Job
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&j); err != nil {
		return nil, fmt.Errorf("parse job %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for _, p := range []*string{&j.SourceText, &j.Units, &j.WantedUnits, &j.SelectedText, &j.SelectedUnitFreqs, &j.Uncovered, &j.DB} {
		if *p != "" && *p != ":memory:" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	if err := j.Validate(); err != nil {
		return nil, fmt.Errorf("job %s: %w", path, err)
	}
	return &j, nil
}
