package selection

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteUnitFreqsOrder(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteUnitFreqs(&buf, map[string]int{"k-a": 3, "a-i": 1, "s-a": 1, "n-o": 2}); err != nil {
		t.Fatal(err)
	}
	want := "a-i 1\ns-a 1\nn-o 2\nk-a 3\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteFiles(t *testing.T) {
	src := buildStore(
		utt{"a b", map[string]int{"X": 1}},
		utt{"c d", map[string]int{"Y": 2}},
		utt{"e f", map[string]int{"X": 1, "Z": 1}},
	)
	sel, err := New(src, []string{"X", "Y", "W"}, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := sel.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	paths := OutputPaths{
		SelectedText:      filepath.Join(dir, "selected.txt"),
		SelectedUnitFreqs: filepath.Join(dir, "selectedunitfreqs.txt"),
		Uncovered:         filepath.Join(dir, "unitsnotcovered.txt"),
	}
	if err := WriteFiles(paths, res); err != nil {
		t.Fatalf("write files: %v", err)
	}

	// Y (2/2) wins round one; "a b" and "e f" tie next, and the tie goes to
	// "e f" only if its secondary score is higher, which it is not.
	checks := map[string]string{
		paths.SelectedText:      "c d\na b\ne f\n",
		paths.SelectedUnitFreqs: "Z 1\nX 2\nY 2\n",
		paths.Uncovered:         "W\n",
	}
	for path, want := range checks {
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Errorf("%s: got %q, want %q", filepath.Base(path), got, want)
		}
	}
}

func TestWriteUncoveredEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteUncovered(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected empty output, got %q", buf.String())
	}
}
