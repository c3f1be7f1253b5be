package db

const migrationsSQL = `
CREATE TABLE IF NOT EXISTS corpora (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	unit_kind TEXT NOT NULL,
	last_processed INTEGER NOT NULL DEFAULT -1,
	added_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS utterances (
	corpus_id INTEGER NOT NULL REFERENCES corpora(id),
	idx INTEGER NOT NULL,
	text TEXT NOT NULL,
	units TEXT NOT NULL,
	PRIMARY KEY (corpus_id, idx)
);

CREATE TABLE IF NOT EXISTS selection_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at DATETIME NOT NULL,
	source_text TEXT,
	threshold INTEGER NOT NULL,
	word_limit INTEGER NOT NULL DEFAULT 0,
	tiebreak TEXT NOT NULL,
	outcome TEXT NOT NULL,
	iterations INTEGER NOT NULL,
	words_selected INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS selected_utterances (
	run_id INTEGER NOT NULL REFERENCES selection_runs(id),
	rank INTEGER NOT NULL,
	text TEXT NOT NULL,
	score REAL NOT NULL,
	num_units INTEGER NOT NULL,
	PRIMARY KEY (run_id, rank)
);

CREATE TABLE IF NOT EXISTS run_unit_freqs (
	run_id INTEGER NOT NULL REFERENCES selection_runs(id),
	unit TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY (run_id, unit)
);

CREATE TABLE IF NOT EXISTS uncovered_units (
	run_id INTEGER NOT NULL REFERENCES selection_runs(id),
	unit TEXT NOT NULL,
	PRIMARY KEY (run_id, unit)
);
`
