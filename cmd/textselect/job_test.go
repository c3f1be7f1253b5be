package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadJob(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.toml")
	content := `source-text = "corpus/source.txt"
units = "corpus/units.txt"
wanted-units = "/abs/wanted.txt"
min-wanted = 3
word-limit = 500
selected-text = "selected.txt"
selected-unit-freqs = "freqs.txt"
uncovered = "uncovered.txt"
separator = ","
literal-tiebreak = true
db = ":memory:"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadJob(path)
	if err != nil {
		t.Fatalf("LoadJob failed: %v", err)
	}
	want := &Job{
		SourceText:        filepath.Join(dir, "corpus/source.txt"),
		Units:             filepath.Join(dir, "corpus/units.txt"),
		WantedUnits:       "/abs/wanted.txt",
		MinWanted:         3,
		WordLimit:         intPtr(500),
		SelectedText:      filepath.Join(dir, "selected.txt"),
		SelectedUnitFreqs: filepath.Join(dir, "freqs.txt"),
		Uncovered:         filepath.Join(dir, "uncovered.txt"),
		Separator:         ",",
		LiteralTieBreak:   true,
		DB:                ":memory:",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("job mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadJobWithoutWordLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.toml")
	content := `source-text = "a"
units = "b"
wanted-units = "c"
min-wanted = 1
selected-text = "d"
selected-unit-freqs = "e"
uncovered = "f"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	job, err := LoadJob(path)
	if err != nil {
		t.Fatalf("LoadJob failed: %v", err)
	}
	if job.WordLimit != nil {
		t.Fatalf("expected no word budget, got %d", *job.WordLimit)
	}
}

func TestLoadJobZeroWordLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.toml")
	content := `source-text = "a"
units = "b"
wanted-units = "c"
min-wanted = 1
word-limit = 0
selected-text = "d"
selected-unit-freqs = "e"
uncovered = "f"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	job, err := LoadJob(path)
	if err != nil {
		t.Fatalf("LoadJob failed: %v", err)
	}
	if job.WordLimit == nil || *job.WordLimit != 0 {
		t.Fatalf("expected a zero word budget, got %v", job.WordLimit)
	}
}

func TestLoadJobErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "Unknown key",
			content: "source-txt = \"a\"\n",
			wantErr: "strict mode",
		},
		{
			name:    "Missing fields",
			content: "source-text = \"a\"\nmin-wanted = 1\n",
			wantErr: "units is required",
		},
		{
			name: "Bad threshold",
			content: `source-text = "a"
units = "b"
wanted-units = "c"
selected-text = "d"
selected-unit-freqs = "e"
uncovered = "f"
min-wanted = 0
`,
			wantErr: "min-wanted must be at least 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "job.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadJob(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestJobFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var j Job
	j.SetFlagDefinitions(fs)
	if err := fs.Parse([]string{"-sep", "|", "-truncate", "-literal-tiebreak", "-quiet", "-db", "runs.db", "rest"}); err != nil {
		t.Fatal(err)
	}
	want := Job{Separator: "|", Truncate: true, LiteralTieBreak: true, Quiet: true, DB: "runs.db"}
	if diff := cmp.Diff(want, j); diff != "" {
		t.Errorf("flags mismatch (-want +got):\n%s", diff)
	}
	if fs.NArg() != 1 {
		t.Errorf("expected positional argument to remain, got %v", fs.Args())
	}
}

func intPtr(n int) *int { return &n }
