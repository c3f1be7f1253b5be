package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// ErrLineCountMismatch is returned when the text and unit inputs are not
// line-aligned and truncation was not requested.
var ErrLineCountMismatch = errors.New("text and unit line counts differ")

const maxLineSize = 4 * 1024 * 1024

// LoadOptions controls how line-aligned inputs are read.
type LoadOptions struct {
	// Separator splits unit lines. Empty means any run of whitespace.
	Separator string
	// Truncate drops the excess lines of the longer input instead of failing.
	Truncate bool
	// Logger receives warnings. nil means no logging.
	Logger *log.Logger
}

// Load builds a store from a text stream (one utterance per line) and a
// unit stream (one unit sequence per line, aligned with the text stream).
func Load(texts, units io.Reader, opts LoadOptions) (*Store, error) {
	textLines, err := ReadLines(texts)
	if err != nil {
		return nil, fmt.Errorf("read text lines: %w", err)
	}
	unitLines, err := ReadLines(units)
	if err != nil {
		return nil, fmt.Errorf("read unit lines: %w", err)
	}

	n := len(textLines)
	if len(unitLines) != n {
		if !opts.Truncate {
			return nil, fmt.Errorf("%w: %d text lines, %d unit lines", ErrLineCountMismatch, len(textLines), len(unitLines))
		}
		n = min(n, len(unitLines))
		opts.warnf("Warning: %d text lines and %d unit lines; using the first %d", len(textLines), len(unitLines), n)
	}

	s := New()
	for i := 0; i < n; i++ {
		text := strings.TrimSpace(textLines[i])
		if text == "" {
			opts.warnf("Warning: empty line %d in source text, skipping", i+1)
			continue
		}
		s.Append(text, CountUnits(SplitUnits(unitLines[i], opts.Separator)))
	}
	return s, nil
}

// LoadFiles opens the two inputs by path and calls Load.
func LoadFiles(textPath, unitsPath string, opts LoadOptions) (*Store, error) {
	tf, err := os.Open(textPath)
	if err != nil {
		return nil, err
	}
	defer tf.Close()
	uf, err := os.Open(unitsPath)
	if err != nil {
		return nil, err
	}
	defer uf.Close()
	return Load(tf, uf, opts)
}

// SplitUnits tokenizes one unit line.
func SplitUnits(line, sep string) []string {
	line = strings.TrimRight(line, "\r\n")
	if sep == "" {
		return strings.Fields(line)
	}
	var out []string
	for _, f := range strings.Split(line, sep) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// CountUnits turns a unit sequence into per-unit occurrence counts.
func CountUnits(units []string) map[string]int {
	freqs := make(map[string]int)
	for _, u := range units {
		freqs[u]++
	}
	return freqs
}

// ReadWantedUnits returns the first field of every non-blank line. Extra
// fields, such as a frequency column, are ignored.
func ReadWantedUnits(r io.Reader) ([]string, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, l := range lines {
		if f := strings.Fields(l); len(f) > 0 {
			out = append(out, f[0])
		}
	}
	return out, nil
}

// ReadWantedUnitsFile reads a wanted-units file from disk.
func ReadWantedUnitsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadWantedUnits(f)
}

// ReadLines returns every line of r without its line terminator.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

func (o LoadOptions) warnf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}
