package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/japaniel/textselect/pkg/corpus"
	"github.com/japaniel/textselect/pkg/db"
	"github.com/japaniel/textselect/pkg/lexicon"
	"github.com/japaniel/textselect/pkg/phonetic"
	"github.com/japaniel/textselect/pkg/phonetize"
	"github.com/japaniel/textselect/pkg/selection"
)

const usage = `usage: textselect COMMAND [flags] ARGS

commands:
  phonetize_monophones [flags] SOURCETEXT UNITSFILE UNITFREQSFILE
  phonetize_diphones   [flags] SOURCETEXT UNITSFILE UNITFREQSFILE
  phonetize_triphones  [flags] SOURCETEXT UNITSFILE UNITFREQSFILE
  select_simple [flags] SOURCETEXT UNITSFILE WANTEDUNITS MINWANTED SELECTEDTEXT SELECTEDUNITFREQS UNCOVERED
  select_simple_wordlimit [flags] SOURCETEXT UNITSFILE WANTEDUNITS MINWANTED WORDLIMIT SELECTEDTEXT SELECTEDUNITFREQS UNCOVERED
  extract [flags] -out SOURCETEXT URL...
  run JOB.toml
  show_run -db FILE RUNID

Run "textselect COMMAND -h" for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "phonetize_monophones", "phonetize_diphones", "phonetize_triphones":
		err = runPhonetize(ctx, cmd, args)
	case "select_simple":
		err = runSelect(ctx, cmd, false, args)
	case "select_simple_wordlimit":
		err = runSelect(ctx, cmd, true, args)
	case "extract":
		err = runExtract(ctx, args)
	case "run":
		err = runJob(ctx, args)
	case "show_run":
		err = runShow(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func newFlagSet(name, positional string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: textselect %s [flags] %s\n", name, positional)
		fs.PrintDefaults()
	}
	return fs
}

func runPhonetize(ctx context.Context, name string, args []string) error {
	kind, err := phonetic.ParseUnitKind(strings.TrimPrefix(name, "phonetize_"))
	if err != nil {
		return err
	}
	fs := newFlagSet(name, "SOURCETEXT UNITSFILE UNITFREQSFILE")
	lexFlag := fs.String("lexicon", "", "Path to a JSON pronunciation lexicon")
	dbFlag := fs.String("db", "", "Path to SQLite database used to checkpoint and resume")
	corpusFlag := fs.String("corpus", "", "Corpus name in the database (default: SOURCETEXT path and unit kind)")
	workersFlag := fs.Int("workers", 4, "Number of concurrent analyzers")
	fs.Parse(args)
	if fs.NArg() != 3 {
		fs.Usage()
		return fmt.Errorf("expected 3 arguments, got %d", fs.NArg())
	}
	sourcePath, unitsPath, freqsPath := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	var lex *lexicon.Lexicon
	if *lexFlag != "" {
		lex, err = lexicon.Load(*lexFlag)
		if err != nil {
			return fmt.Errorf("load lexicon: %w", err)
		}
		fmt.Printf("Loaded %d lexicon entries.\n", lex.Len())
	}
	analyzer, err := phonetic.NewAnalyzer(lex)
	if err != nil {
		return fmt.Errorf("create analyzer: %w", err)
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return err
	}
	sentences, err := corpus.ReadLines(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", sourcePath, err)
	}

	p := phonetize.NewPhonetizer(analyzer, kind, nil)
	p.Workers = *workersFlag
	p.Logger = log.Default()
	p.OnProgress = func(current, total int) {
		fmt.Printf("\rPhonetized %d/%d sentences", current, total)
		if current == total {
			fmt.Println()
		}
	}

	var corpusID int64
	if *dbFlag != "" {
		conn, err := db.Open(*dbFlag)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer conn.Close()
		corpusName := *corpusFlag
		if corpusName == "" {
			abs, err := filepath.Abs(sourcePath)
			if err != nil {
				abs = sourcePath
			}
			corpusName = fmt.Sprintf("%s (%s)", abs, kind)
		}
		corpusID, err = db.CreateOrGetCorpus(conn, corpusName, string(kind))
		if err != nil {
			return fmt.Errorf("persist corpus: %w", err)
		}
		p.DB = conn
		fmt.Printf("Corpus %q saved with ID: %d\n", corpusName, corpusID)
	}

	results, err := p.Run(ctx, corpusID, sentences)
	if err != nil {
		return err
	}

	if err := writeFile(unitsPath, func(w *bufio.Writer) error {
		return phonetize.WriteUnits(w, results)
	}); err != nil {
		return fmt.Errorf("write units: %w", err)
	}
	freqs := phonetize.UnitFreqs(results)
	if err := writeFile(freqsPath, func(w *bufio.Writer) error {
		return selection.WriteUnitFreqs(w, freqs)
	}); err != nil {
		return fmt.Errorf("write unit freqs: %w", err)
	}
	fmt.Printf("Processing complete. %d sentences, %d distinct %s.\n", len(results), len(freqs), kind)
	return nil
}

func runSelect(ctx context.Context, name string, wordLimit bool, args []string) error {
	positional := "SOURCETEXT UNITSFILE WANTEDUNITS MINWANTED SELECTEDTEXT SELECTEDUNITFREQS UNCOVERED"
	want := 7
	if wordLimit {
		positional = "SOURCETEXT UNITSFILE WANTEDUNITS MINWANTED WORDLIMIT SELECTEDTEXT SELECTEDUNITFREQS UNCOVERED"
		want = 8
	}
	fs := newFlagSet(name, positional)
	var job Job
	job.SetFlagDefinitions(fs)
	fs.Parse(args)
	if fs.NArg() != want {
		fs.Usage()
		return fmt.Errorf("expected %d arguments, got %d", want, fs.NArg())
	}

	a := fs.Args()
	job.SourceText, job.Units, job.WantedUnits = a[0], a[1], a[2]
	n, err := strconv.Atoi(a[3])
	if err != nil {
		return fmt.Errorf("MINWANTED: %w", err)
	}
	job.MinWanted = n
	rest := a[4:]
	if wordLimit {
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("WORDLIMIT: %w", err)
		}
		job.WordLimit = &n
		rest = rest[1:]
	}
	job.SelectedText, job.SelectedUnitFreqs, job.Uncovered = rest[0], rest[1], rest[2]

	if err := job.Validate(); err != nil {
		return err
	}
	return runSelection(ctx, &job)
}

func runJob(ctx context.Context, args []string) error {
	fs := newFlagSet("run", "JOB.toml")
	fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected 1 argument, got %d", fs.NArg())
	}
	job, err := LoadJob(fs.Arg(0))
	if err != nil {
		return err
	}
	return runSelection(ctx, job)
}

func runSelection(ctx context.Context, job *Job) error {
	store, err := corpus.LoadFiles(job.SourceText, job.Units, corpus.LoadOptions{
		Separator: job.Separator,
		Truncate:  job.Truncate,
		Logger:    log.Default(),
	})
	if err != nil {
		return err
	}
	wanted, err := corpus.ReadWantedUnitsFile(job.WantedUnits)
	if err != nil {
		return fmt.Errorf("read wanted units: %w", err)
	}
	fmt.Printf("Loaded %d utterances and %d wanted units.\n", store.Len(), len(wanted))

	var sel *selection.Selector
	if job.WordLimit != nil {
		sel, err = selection.NewWordLimit(store, wanted, job.MinWanted, *job.WordLimit, nil)
	} else {
		sel, err = selection.New(store, wanted, job.MinWanted, nil)
	}
	if err != nil {
		return err
	}
	if job.LiteralTieBreak {
		sel.TieBreak = selection.TieBreakLiteral
	}
	if !job.Quiet {
		sel.Logger = log.New(os.Stdout, "", 0)
	}

	started := time.Now()
	res, err := sel.Run(ctx)
	if err != nil {
		return err
	}
	if err := selection.WriteFiles(selection.OutputPaths{
		SelectedText:      job.SelectedText,
		SelectedUnitFreqs: job.SelectedUnitFreqs,
		Uncovered:         job.Uncovered,
	}, res); err != nil {
		return err
	}
	fmt.Printf("Selection %s after %d iterations: %d utterances, %d words, %d units uncovered.\n",
		res.Outcome, res.Iterations, res.Selected.Len(), res.WordsSelected, len(res.Uncovered))

	if job.DB == "" {
		return nil
	}
	conn, err := db.Open(job.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()
	runID, err := db.SaveRun(conn, runRecord(job, sel.TieBreak, started, res))
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	fmt.Printf("Run saved with ID: %d\n", runID)
	return nil
}

func runRecord(job *Job, tb selection.TieBreak, started time.Time, res *selection.Result) db.Run {
	wordLimit := -1
	if job.WordLimit != nil {
		wordLimit = *job.WordLimit
	}
	run := db.Run{
		StartedAt:     started.UTC(),
		SourceText:    job.SourceText,
		Threshold:     job.MinWanted,
		WordLimit:     wordLimit,
		TieBreak:      tb.String(),
		Outcome:       res.Outcome.String(),
		Iterations:    res.Iterations,
		WordsSelected: res.WordsSelected,
		UnitFreqs:     res.Selected.UnselectedFreqs(),
		Uncovered:     res.Uncovered,
	}
	for _, u := range selection.Ranked(res.Selected) {
		run.Selected = append(run.Selected, db.SelectedUtterance{
			Rank:     u.Rank,
			Text:     u.Text,
			Score:    u.Score,
			NumUnits: u.NumUnits,
		})
	}
	return run
}

func runShow(args []string) error {
	fs := newFlagSet("show_run", "-db FILE RUNID")
	dbFlag := fs.String("db", "", "Path to SQLite database holding recorded runs")
	fs.Parse(args)
	if *dbFlag == "" || fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("need -db and a run id")
	}
	runID, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("RUNID: %w", err)
	}
	if _, err := os.Stat(*dbFlag); err != nil {
		return err
	}

	conn, err := db.Open(*dbFlag)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()
	run, err := db.GetRun(conn, runID)
	if err != nil {
		return fmt.Errorf("load run %d: %w", runID, err)
	}

	budget := "none"
	if run.WordLimit >= 0 {
		budget = strconv.Itoa(run.WordLimit)
	}
	fmt.Printf("Run %d started %s on %s\n", run.ID, run.StartedAt.Format(time.RFC3339), run.SourceText)
	fmt.Printf("threshold=%d word-limit=%s tiebreak=%s\n", run.Threshold, budget, run.TieBreak)
	fmt.Printf("Selection %s after %d iterations: %d utterances, %d words, %d units uncovered.\n",
		run.Outcome, run.Iterations, len(run.Selected), run.WordsSelected, len(run.Uncovered))
	for _, s := range run.Selected {
		fmt.Printf("%4d %.6f %s\n", s.Rank, s.Score, s.Text)
	}
	if len(run.Uncovered) > 0 {
		fmt.Printf("Uncovered: %s\n", strings.Join(run.Uncovered, " "))
	}
	return nil
}

func runExtract(ctx context.Context, args []string) error {
	fs := newFlagSet("extract", "-out SOURCETEXT URL...")
	outFlag := fs.String("out", "", "Write extracted sentences to this file, one per line")
	rateFlag := fs.Duration("rate", time.Second, "Minimum interval between fetches")
	fs.Parse(args)
	if *outFlag == "" || fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("need -out and at least one URL")
	}

	ex := phonetic.NewExtractor(*rateFlag)
	ex.Logger = log.New(os.Stdout, "", 0)
	articles, err := ex.ExtractAll(ctx, fs.Args())
	if err != nil {
		return err
	}

	var count int
	if err := writeFile(*outFlag, func(w *bufio.Writer) error {
		for _, a := range articles {
			for _, s := range a.Sentences {
				if _, err := fmt.Fprintln(w, s); err != nil {
					return err
				}
				count++
			}
		}
		return nil
	}); err != nil {
		return err
	}
	fmt.Printf("Extracted %d sentences from %d pages into %s\n", count, len(articles), *outFlag)
	return nil
}

func writeFile(path string, fn func(w *bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := fn(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
