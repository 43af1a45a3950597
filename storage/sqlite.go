package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"fightsync/models"
)

// SQLiteStore holds operational data: run history, logs, pending commands,
// per-source stats. Domain data lives in the relational Store.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sync_runs (
		id INTEGER PRIMARY KEY,
		run_id TEXT,
		kind TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		processed INTEGER DEFAULT 0,
		successful INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		total_fights INTEGER DEFAULT 0,
		errors_count INTEGER DEFAULT 0,
		error_text TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS sync_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		source_id TEXT
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS source_stats (
		source_id TEXT PRIMARY KEY,
		last_run_at DATETIME,
		last_run_status TEXT,
		total_runs INTEGER DEFAULT 0,
		total_fights INTEGER DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateRun(run *models.SyncRun) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO sync_runs (run_id, kind, started_at, status)
		VALUES (?, ?, ?, ?)`,
		run.RunID.String(), run.Kind, run.StartedAt, run.Status,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.SyncRun) error {
	_, err := s.db.Exec(`
		UPDATE sync_runs SET
			finished_at = ?, status = ?, processed = ?, successful = ?,
			failed = ?, total_fights = ?, errors_count = ?, error_text = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.Processed, run.Successful,
		run.Failed, run.TotalFights, run.ErrorsCount, run.ErrorText, run.ID,
	)
	return err
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, sourceID string) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_logs (run_id, timestamp, level, message, source_id)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, sourceID,
	)
	return err
}

// RecentLogs returns the newest log entries, most recent first.
func (s *SQLiteStore) RecentLogs(limit int) ([]models.SyncLog, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, timestamp, level, message, source_id
		FROM sync_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.SyncLog
	for rows.Next() {
		var entry models.SyncLog
		if err := rows.Scan(&entry.ID, &entry.RunID, &entry.Timestamp, &entry.Level, &entry.Message, &entry.SourceID); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, COALESCE(params, '{}'), created_at
		FROM commands WHERE processed_at IS NULL
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params string
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt); err != nil {
			return nil, err
		}
		cmd.Params = json.RawMessage(params)
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func (s *SQLiteStore) EnqueueCommand(cmd models.CommandType, params *models.CommandParams) error {
	data := []byte("{}")
	if params != nil {
		var err error
		data, err = json.Marshal(params)
		if err != nil {
			return err
		}
	}
	_, err := s.db.Exec(`INSERT INTO commands (command, params) VALUES (?, ?)`, cmd, string(data))
	return err
}

func (s *SQLiteStore) ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	params := &models.CommandParams{}
	if len(cmd.Params) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(cmd.Params, params); err != nil {
		return nil, err
	}
	return params, nil
}

func (s *SQLiteStore) UpdateSourceStats(sourceID string, status models.RunStatus, fights int) error {
	_, err := s.db.Exec(`
		INSERT INTO source_stats (source_id, last_run_at, last_run_status, total_runs, total_fights)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (source_id) DO UPDATE SET
			last_run_at = excluded.last_run_at,
			last_run_status = excluded.last_run_status,
			total_runs = source_stats.total_runs + 1,
			total_fights = source_stats.total_fights + excluded.total_fights`,
		sourceID, time.Now(), status, fights,
	)
	return err
}

func (s *SQLiteStore) GetLastRunTime(kind string) (time.Time, error) {
	var t sql.NullTime
	err := s.db.QueryRow(`
		SELECT MAX(started_at) FROM sync_runs WHERE kind = ?`, kind,
	).Scan(&t)
	if err != nil || !t.Valid {
		return time.Time{}, err
	}
	return t.Time, nil
}
