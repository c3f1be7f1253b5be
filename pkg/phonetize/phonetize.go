// Package phonetize turns source sentences into unit sequences concurrently
// and checkpoints the results in sqlite so an interrupted run can resume.
package phonetize

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/japaniel/textselect/pkg/db"
	"github.com/japaniel/textselect/pkg/phonetic"
)

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// Frontend maps a sentence to its phone sequence.
type Frontend interface {
	Phones(text string) []string
}

// Phonetized is one sentence with the units built from it.
type Phonetized struct {
	Index int
	Text  string
	Units []string
}

// Phonetizer runs a Frontend over a corpus on a worker pool.
type Phonetizer struct {
	Frontend Frontend
	Kind     phonetic.UnitKind
	// DB enables checkpointing. nil runs in memory only.
	DB        *sql.DB
	BatchSize int
	Workers   int
	// Logger is used for informational messages (e.g. resume status). nil means no logging.
	Logger *log.Logger
	// OnProgress is called with the number of phonetized sentences and the total.
	OnProgress func(current, total int)

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewPhonetizer creates a Phonetizer with default batching and concurrency.
func NewPhonetizer(fe Frontend, kind phonetic.UnitKind, conn *sql.DB) *Phonetizer {
	return &Phonetizer{
		Frontend:  fe,
		Kind:      kind,
		DB:        conn,
		BatchSize: 50,
		Workers:   4,
	}
}

func (p *Phonetizer) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}

// Run phonetizes sentences and returns them in input order. When DB is set,
// results are stored under corpusID and sentences already stored before the
// corpus checkpoint are loaded instead of being analyzed again.
func (p *Phonetizer) Run(ctx context.Context, corpusID int64, sentences []string) ([]Phonetized, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	total := len(sentences)
	out := make([]Phonetized, total)

	startIdx, err := p.resume(corpusID, sentences, out)
	if err != nil {
		return nil, err
	}
	if startIdx >= total {
		return out, nil
	}

	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}
	var wp WorkerPoolInterface
	if p.PoolFactory != nil {
		wp = p.PoolFactory(workers, workers*2)
	} else {
		wp = NewWorkerPool(workers, workers*2)
	}

	var bw *BatchWriter
	if p.DB != nil {
		bw = NewBatchWriter(p.DB, p.BatchSize, 100*time.Millisecond)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan Phonetized, workers*2)
	done := make(chan error, 1)
	wp.Start(ctx)

	go func() {
		defer close(done)
		pending := make(map[int]Phonetized)
		next := startIdx
		for res := range results {
			pending[res.Index] = res
			for {
				item, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				out[next] = item
				if bw != nil {
					if err := bw.Submit(p.persist(corpusID, item)); err != nil {
						cancel()
						done <- err
						return
					}
					if err := bw.Err(); err != nil {
						cancel()
						done <- err
						return
					}
				}
				next++
				if p.OnProgress != nil && (next%p.progressStep() == 0 || next == total) {
					p.OnProgress(next, total)
				}
			}
		}
		if next < total {
			if err := ctx.Err(); err != nil {
				done <- err
				return
			}
			done <- fmt.Errorf("phonetized %d of %d sentences", next, total)
			return
		}
		done <- nil
	}()

	var submitErr error
	for i := startIdx; i < total; i++ {
		if ctx.Err() != nil {
			break
		}
		idx, text := i, sentences[i]
		job := func(ctx context.Context) error {
			res := Phonetized{Index: idx, Text: text, Units: p.units(text)}
			select {
			case results <- res:
			case <-ctx.Done():
			}
			return nil
		}
		if err := wp.SubmitCtx(ctx, job); err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrPoolClosed) {
				break
			}
			submitErr = fmt.Errorf("submit sentence %d: %w", idx, err)
			cancel()
			break
		}
	}

	// Workers are done once Close returns, so nothing sends on results after this.
	wp.Close()
	close(results)
	consumerErr := <-done

	var writeErr error
	if bw != nil {
		writeErr = bw.Close()
	}

	switch {
	case submitErr != nil:
		return nil, submitErr
	case consumerErr != nil:
		return nil, consumerErr
	case writeErr != nil:
		return nil, writeErr
	}
	return out, nil
}

// resume fills out with the stored prefix of the corpus and returns the
// index to continue from. Stored rows that no longer match the input end
// the prefix.
func (p *Phonetizer) resume(corpusID int64, sentences []string, out []Phonetized) (int, error) {
	if p.DB == nil {
		return 0, nil
	}
	last, err := db.GetCorpusProgress(p.DB, corpusID)
	if err != nil {
		p.logf("Warning: Failed to retrieve progress: %v", err)
		return 0, nil
	}
	if last < 0 {
		return 0, nil
	}
	stored, err := db.GetUtterances(p.DB, corpusID, last)
	if err != nil {
		return 0, fmt.Errorf("load checkpointed sentences: %w", err)
	}
	next := 0
	for _, u := range stored {
		if u.Index != next || next >= len(sentences) || u.Text != sentences[next] {
			break
		}
		out[next] = Phonetized{Index: u.Index, Text: u.Text, Units: u.Units}
		next++
	}
	if next <= last && next < len(sentences) {
		p.logf("Checkpoint at sentence %d does not match the input past sentence %d; rephonetizing from there", last, next)
	} else if next > 0 {
		p.logf("Resuming from sentence index %d (skipping %d sentences)", next, next)
	}
	return next, nil
}

func (p *Phonetizer) units(text string) []string {
	return p.Kind.Build(p.Frontend.Phones(text))
}

func (p *Phonetizer) progressStep() int {
	if p.BatchSize > 0 {
		return p.BatchSize
	}
	return 50
}

func (p *Phonetizer) persist(corpusID int64, item Phonetized) WriteFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		u := db.Utterance{Index: item.Index, Text: item.Text, Units: item.Units}
		if err := db.PutUtterance(tx, corpusID, u); err != nil {
			return fmt.Errorf("persist sentence %d: %w", item.Index, err)
		}
		if err := db.UpdateCorpusProgress(tx, corpusID, item.Index); err != nil {
			return fmt.Errorf("save progress: %w", err)
		}
		return nil
	}
}

// UnitFreqs counts every unit over all results.
func UnitFreqs(results []Phonetized) map[string]int {
	freqs := make(map[string]int)
	for _, r := range results {
		for _, u := range r.Units {
			freqs[u]++
		}
	}
	return freqs
}

// WriteUnits writes one line of space-joined units per result, aligned with
// the source text file.
func WriteUnits(w io.Writer, results []Phonetized) error {
	for _, r := range results {
		if _, err := fmt.Fprintln(w, strings.Join(r.Units, " ")); err != nil {
			return err
		}
	}
	return nil
}
