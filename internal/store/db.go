package store

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/errors"
	_ "github.com/mattn/go-sqlite3"

	"migration-harness/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	config TEXT,
	status TEXT,
	report TEXT,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS run_stages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	stage TEXT NOT NULL,
	status TEXT,
	started_at DATETIME,
	finished_at DATETIME,
	detail TEXT,
	UNIQUE (run_id, stage)
);
CREATE TABLE IF NOT EXISTS run_errors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	error_message TEXT,
	created_at DATETIME
);
`

// Store records harness runs in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the tracking database at path.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Annotatef(err, "creating directory for %s", path)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Annotatef(err, "opening %s", path)
	}
	// One connection: SQLite serializes writers anyway, and an in-memory
	// database only lives on the connection that created it.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Annotate(err, "creating schema")
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun stores a new run.
func (s *Store) StartRun(runID string, config []byte) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`INSERT INTO runs (id, config, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		runID, string(config), model.StatusRunning, now, now)
	return errors.Annotatef(err, "saving run %s", runID)
}

// UpdateRunStatus updates run status.
func (s *Store) UpdateRunStatus(runID, status string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, now, runID)
	return errors.Annotatef(err, "updating run %s", runID)
}

// SaveStage records a stage transition, replacing the previous state of
// the same stage.
func (s *Store) SaveStage(runID string, stage model.StageRecord) error {
	var finished sql.NullTime
	if stage.FinishedAt != nil {
		finished = sql.NullTime{Time: stage.FinishedAt.UTC(), Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT INTO run_stages (run_id, stage, status, started_at, finished_at, detail)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, stage) DO UPDATE SET
			status = excluded.status,
			finished_at = excluded.finished_at,
			detail = excluded.detail`,
		runID, string(stage.Stage), stage.Status, stage.StartedAt.UTC(), finished, stage.Detail)
	return errors.Annotatef(err, "saving stage %s of run %s", stage.Stage, runID)
}

// SaveRunError records an error for a run.
func (s *Store) SaveRunError(runID string, err error) error {
	if err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := s.db.Exec(`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, err.Error(), now)
	return errors.Annotatef(e, "saving error of run %s", runID)
}

// SaveReport stores the verification report of a run.
func (s *Store) SaveReport(runID string, report *model.RunReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return errors.Trace(err)
	}
	_, err = s.db.Exec(`UPDATE runs SET report = ?, updated_at = ? WHERE id = ?`, string(data), time.Now().UTC(), runID)
	return errors.Annotatef(err, "saving report of run %s", runID)
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns() ([]model.RunRecord, error) {
	rows, err := s.db.Query(`SELECT id, status, created_at, updated_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Annotate(err, "listing runs")
	}
	defer rows.Close()

	runs := []model.RunRecord{}
	for rows.Next() {
		var r model.RunRecord
		if err := rows.Scan(&r.ID, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, errors.Trace(err)
		}
		runs = append(runs, r)
	}
	return runs, errors.Trace(rows.Err())
}

// GetRun fetches a run with its configuration.
func (s *Store) GetRun(runID string) (model.RunRecord, error) {
	r := model.RunRecord{ID: runID}
	err := s.db.QueryRow(`SELECT config, status, created_at, updated_at FROM runs WHERE id = ?`, runID).
		Scan(&r.Config, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunRecord{}, errors.NotFoundf("run %s", runID)
	}
	if err != nil {
		return model.RunRecord{}, errors.Annotatef(err, "fetching run %s", runID)
	}
	return r, nil
}

// GetStages returns the stages of a run in the order they started.
func (s *Store) GetStages(runID string) ([]model.StageRecord, error) {
	if _, err := s.GetRun(runID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT stage, status, started_at, finished_at, detail FROM run_stages WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, errors.Annotatef(err, "fetching stages of run %s", runID)
	}
	defer rows.Close()

	stages := []model.StageRecord{}
	for rows.Next() {
		var (
			rec      model.StageRecord
			stage    string
			finished sql.NullTime
			detail   sql.NullString
		)
		if err := rows.Scan(&stage, &rec.Status, &rec.StartedAt, &finished, &detail); err != nil {
			return nil, errors.Trace(err)
		}
		rec.Stage = model.Stage(stage)
		if finished.Valid {
			t := finished.Time
			rec.FinishedAt = &t
		}
		rec.Detail = detail.String
		stages = append(stages, rec)
	}
	return stages, errors.Trace(rows.Err())
}

// GetErrors returns the errors recorded for a run.
func (s *Store) GetErrors(runID string) ([]model.ErrorRecord, error) {
	if _, err := s.GetRun(runID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT error_message, created_at FROM run_errors WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, errors.Annotatef(err, "fetching errors of run %s", runID)
	}
	defer rows.Close()

	errs := []model.ErrorRecord{}
	for rows.Next() {
		var e model.ErrorRecord
		if err := rows.Scan(&e.Message, &e.CreatedAt); err != nil {
			return nil, errors.Trace(err)
		}
		errs = append(errs, e)
	}
	return errs, errors.Trace(rows.Err())
}

// GetReport returns the verification report of a run.
func (s *Store) GetReport(runID string) (*model.RunReport, error) {
	var data sql.NullString
	err := s.db.QueryRow(`SELECT report FROM runs WHERE id = ?`, runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundf("run %s", runID)
	}
	if err != nil {
		return nil, errors.Annotatef(err, "fetching report of run %s", runID)
	}
	if !data.Valid || data.String == "" {
		return nil, errors.NotFoundf("report of run %s", runID)
	}
	var report model.RunReport
	if err := json.Unmarshal([]byte(data.String), &report); err != nil {
		return nil, errors.Annotatef(err, "decoding report of run %s", runID)
	}
	return &report, nil
}
