package db

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

// CreateOrGetCorpus returns the id of the corpus called name, creating it if
// needed. An existing corpus phonetized with a different unit kind is an error.
func CreateOrGetCorpus(db DBExecutor, name, unitKind string) (int64, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return 0, fmt.Errorf("corpus name must be non-empty")
	}

	const maxRetries = 3
	for attempt := 0; attempt < maxRetries; attempt++ {
		var id int64
		var kind string
		err := db.QueryRow(`SELECT id, unit_kind FROM corpora WHERE name = ?`, trimmed).Scan(&id, &kind)
		if err == nil {
			if kind != unitKind {
				return 0, fmt.Errorf("corpus %q holds %s, not %s", trimmed, kind, unitKind)
			}
			return id, nil
		}
		if err != sql.ErrNoRows {
			return 0, err
		}

		res, err := db.Exec(`INSERT INTO corpora (name, unit_kind) VALUES (?, ?)`, trimmed, unitKind)
		if err != nil {
			// Another writer created it first; read it back.
			if isUniqueConstraintErr(err) {
				continue
			}
			return 0, err
		}
		return res.LastInsertId()
	}
	return 0, fmt.Errorf("could not create or get corpus after %d retries", maxRetries)
}

// GetCorpusProgress returns the index of the last phonetized utterance, or -1.
func GetCorpusProgress(db DBExecutor, corpusID int64) (int, error) {
	var index int
	err := db.QueryRow(`SELECT last_processed FROM corpora WHERE id = ?`, corpusID).Scan(&index)
	if err != nil {
		return 0, err
	}
	return index, nil
}

// UpdateCorpusProgress checkpoints the last phonetized utterance index.
func UpdateCorpusProgress(db DBExecutor, corpusID int64, index int) error {
	_, err := db.Exec(`UPDATE corpora SET last_processed = ? WHERE id = ?`, index, corpusID)
	return err
}

// PutUtterance stores or replaces the phonetized form of one utterance.
func PutUtterance(db DBExecutor, corpusID int64, u Utterance) error {
	if corpusID <= 0 {
		return fmt.Errorf("corpusID must be positive")
	}
	_, err := db.Exec(`INSERT INTO utterances (corpus_id, idx, text, units) VALUES (?, ?, ?, ?)
	ON CONFLICT(corpus_id, idx) DO UPDATE SET text = excluded.text, units = excluded.units`,
		corpusID, u.Index, u.Text, strings.Join(u.Units, " "))
	return err
}

// GetUtterances returns the stored utterances of a corpus with idx <= upTo,
// ordered by index.
func GetUtterances(db DBExecutor, corpusID int64, upTo int) ([]Utterance, error) {
	rows, err := db.Query(`SELECT idx, text, units FROM utterances WHERE corpus_id = ? AND idx <= ? ORDER BY idx`, corpusID, upTo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Utterance
	for rows.Next() {
		var u Utterance
		var units string
		if err := rows.Scan(&u.Index, &u.Text, &units); err != nil {
			return nil, err
		}
		u.Units = strings.Fields(units)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveRun stores a finished selection run in a single transaction and
// returns its id.
func SaveRun(conn *sql.DB, run Run) (int64, error) {
	tx, err := conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin save run: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	res, err := tx.Exec(`INSERT INTO selection_runs (started_at, source_text, threshold, word_limit, tiebreak, outcome, iterations, words_selected)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt, run.SourceText, run.Threshold, run.WordLimit, run.TieBreak, run.Outcome, run.Iterations, run.WordsSelected)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, s := range run.Selected {
		if _, err := tx.Exec(`INSERT INTO selected_utterances (run_id, rank, text, score, num_units) VALUES (?, ?, ?, ?, ?)`,
			runID, s.Rank, s.Text, s.Score, s.NumUnits); err != nil {
			return 0, fmt.Errorf("insert selected utterance %d: %w", s.Rank, err)
		}
	}
	for unit, count := range run.UnitFreqs {
		if _, err := tx.Exec(`INSERT INTO run_unit_freqs (run_id, unit, count) VALUES (?, ?, ?)`, runID, unit, count); err != nil {
			return 0, fmt.Errorf("insert unit freq %s: %w", unit, err)
		}
	}
	for _, unit := range run.Uncovered {
		if _, err := tx.Exec(`INSERT INTO uncovered_units (run_id, unit) VALUES (?, ?)`, runID, unit); err != nil {
			return 0, fmt.Errorf("insert uncovered unit %s: %w", unit, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

// GetRun loads a selection run with its picks, unit counts and uncovered units.
func GetRun(db DBExecutor, runID int64) (Run, error) {
	run := Run{ID: runID, UnitFreqs: map[string]int{}}
	var source sql.NullString
	err := db.QueryRow(`SELECT started_at, source_text, threshold, word_limit, tiebreak, outcome, iterations, words_selected FROM selection_runs WHERE id = ?`, runID).
		Scan(&run.StartedAt, &source, &run.Threshold, &run.WordLimit, &run.TieBreak, &run.Outcome, &run.Iterations, &run.WordsSelected)
	if err != nil {
		return Run{}, err
	}
	if source.Valid {
		run.SourceText = source.String
	}

	rows, err := db.Query(`SELECT rank, text, score, num_units FROM selected_utterances WHERE run_id = ? ORDER BY rank`, runID)
	if err != nil {
		return Run{}, err
	}
	for rows.Next() {
		var s SelectedUtterance
		if err := rows.Scan(&s.Rank, &s.Text, &s.Score, &s.NumUnits); err != nil {
			rows.Close()
			return Run{}, err
		}
		run.Selected = append(run.Selected, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Run{}, err
	}

	rows, err = db.Query(`SELECT unit, count FROM run_unit_freqs WHERE run_id = ?`, runID)
	if err != nil {
		return Run{}, err
	}
	for rows.Next() {
		var unit string
		var count int
		if err := rows.Scan(&unit, &count); err != nil {
			rows.Close()
			return Run{}, err
		}
		run.UnitFreqs[unit] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Run{}, err
	}

	rows, err = db.Query(`SELECT unit FROM uncovered_units WHERE run_id = ?`, runID)
	if err != nil {
		return Run{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var unit string
		if err := rows.Scan(&unit); err != nil {
			return Run{}, err
		}
		run.Uncovered = append(run.Uncovered, unit)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	sort.Strings(run.Uncovered)
	return run, nil
}
