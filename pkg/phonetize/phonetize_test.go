package phonetize

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/japaniel/textselect/pkg/db"
	"github.com/japaniel/textselect/pkg/phonetic"
)

// runeFrontend treats every rune as a phone and counts its calls.
type runeFrontend struct {
	calls int32
}

func (f *runeFrontend) Phones(text string) []string {
	atomic.AddInt32(&f.calls, 1)
	phones := []string{phonetic.Pause}
	for _, r := range text {
		phones = append(phones, string(r))
	}
	return append(phones, phonetic.Pause)
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func numbered(n int) []string {
	sentences := make([]string, n)
	for i := range sentences {
		sentences[i] = fmt.Sprintf("s%d", i)
	}
	return sentences
}

func TestRunInMemoryKeepsOrder(t *testing.T) {
	fe := &runeFrontend{}
	p := NewPhonetizer(fe, phonetic.Diphones, nil)
	p.Workers = 8

	sentences := numbered(200)
	got, err := p.Run(context.Background(), 0, sentences)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(got) != len(sentences) {
		t.Fatalf("expected %d results, got %d", len(sentences), len(got))
	}
	for i, r := range got {
		if r.Index != i || r.Text != sentences[i] {
			t.Fatalf("result %d out of order: %+v", i, r)
		}
	}
	want := []string{"pau-s", "s-1", "1-2", "2-pau"}
	if diff := cmp.Diff(want, got[12].Units); diff != "" {
		t.Errorf("units mismatch (-want +got):\n%s", diff)
	}
}

func TestRunPersistsAndResumes(t *testing.T) {
	conn := setupDB(t)
	corpusID, err := db.CreateOrGetCorpus(conn, "test", string(phonetic.Diphones))
	if err != nil {
		t.Fatal(err)
	}
	sentences := numbered(10)

	first := NewPhonetizer(&runeFrontend{}, phonetic.Diphones, conn)
	first.BatchSize = 3
	want, err := first.Run(context.Background(), corpusID, sentences)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	last, err := db.GetCorpusProgress(conn, corpusID)
	if err != nil {
		t.Fatal(err)
	}
	if last != 9 {
		t.Fatalf("expected checkpoint 9, got %d", last)
	}

	// Roll the checkpoint back so the last five sentences are redone.
	if err := db.UpdateCorpusProgress(conn, corpusID, 4); err != nil {
		t.Fatal(err)
	}
	fe := &runeFrontend{}
	var logs bytes.Buffer
	second := NewPhonetizer(fe, phonetic.Diphones, conn)
	second.Logger = log.New(&logs, "", 0)
	got, err := second.Run(context.Background(), corpusID, sentences)
	if err != nil {
		t.Fatalf("resumed Run failed: %v", err)
	}
	if calls := atomic.LoadInt32(&fe.calls); calls != 5 {
		t.Errorf("expected 5 sentences analyzed after resume, got %d", calls)
	}
	if !strings.Contains(logs.String(), "Resuming from sentence index 5") {
		t.Errorf("expected resume message, got %q", logs.String())
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("resumed results mismatch (-want +got):\n%s", diff)
	}
}

func TestRunRedoesChangedInput(t *testing.T) {
	conn := setupDB(t)
	corpusID, err := db.CreateOrGetCorpus(conn, "changed", string(phonetic.Monophones))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewPhonetizer(&runeFrontend{}, phonetic.Monophones, conn).Run(context.Background(), corpusID, []string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}

	fe := &runeFrontend{}
	got, err := NewPhonetizer(fe, phonetic.Monophones, conn).Run(context.Background(), corpusID, []string{"a", "x", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if calls := atomic.LoadInt32(&fe.calls); calls != 2 {
		t.Errorf("expected 2 sentences analyzed, got %d", calls)
	}
	if diff := cmp.Diff([]string{"pau", "x", "pau"}, got[1].Units); diff != "" {
		t.Errorf("units mismatch (-want +got):\n%s", diff)
	}
}

func TestRunContextCancel(t *testing.T) {
	conn := setupDB(t)
	corpusID, _ := db.CreateOrGetCorpus(conn, "cancel", string(phonetic.Diphones))

	p := NewPhonetizer(&runeFrontend{}, phonetic.Diphones, conn)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(ctx, corpusID, numbered(100))
		done <- err
	}()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

// failingPool always returns an error on Submit to simulate producer error.
type failingPool struct{}

func (f *failingPool) Start(ctx context.Context) {}
func (f *failingPool) Submit(job Job) error      { return errors.New("submit failed") }
func (f *failingPool) SubmitCtx(ctx context.Context, job Job) error {
	return errors.New("submit failed")
}
func (f *failingPool) Close() {}

func TestRunHandlesSubmitError(t *testing.T) {
	conn := setupDB(t)
	corpusID, err := db.CreateOrGetCorpus(conn, "submit-error", string(phonetic.Diphones))
	if err != nil {
		t.Fatal(err)
	}

	p := NewPhonetizer(&runeFrontend{}, phonetic.Diphones, conn)
	p.PoolFactory = func(workers, queue int) WorkerPoolInterface { return &failingPool{} }

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = p.Run(ctx, corpusID, numbered(10))
	if err == nil || !strings.Contains(err.Error(), "submit failed") {
		t.Fatalf("expected submit error, got %v", err)
	}
}

func TestUnitFreqsAndWriteUnits(t *testing.T) {
	results := []Phonetized{
		{Index: 0, Text: "ab", Units: []string{"a-b", "b-pau"}},
		{Index: 1, Text: "", Units: nil},
		{Index: 2, Text: "b", Units: []string{"b-pau"}},
	}
	want := map[string]int{"a-b": 1, "b-pau": 2}
	if diff := cmp.Diff(want, UnitFreqs(results)); diff != "" {
		t.Errorf("freqs mismatch (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	if err := WriteUnits(&buf, results); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "a-b b-pau\n\nb-pau\n" {
		t.Errorf("unexpected units file %q", got)
	}
}

func TestRunWithKagome(t *testing.T) {
	a, err := phonetic.NewAnalyzer(nil)
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	got, err := NewPhonetizer(a, phonetic.Diphones, nil).Run(context.Background(), 0, []string{"猫です。"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"pau-ネ", "ネ-コ", "コ-デ", "デ-ス", "ス-pau"}
	if diff := cmp.Diff(want, got[0].Units); diff != "" {
		t.Errorf("units mismatch (-want +got):\n%s", diff)
	}
}
