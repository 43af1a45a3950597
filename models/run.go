package models

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// Run kinds recorded in the operational store.
const (
	RunKindFullSync = "full_sync"
	RunKindRankings = "rankings"
)

// SyncRun is the operational record of one pipeline execution.
type SyncRun struct {
	ID          int64      `json:"id" db:"id"`
	RunID       uuid.UUID  `json:"run_id" db:"run_id"`
	Kind        string     `json:"kind" db:"kind"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	FinishedAt  *time.Time `json:"finished_at" db:"finished_at"`
	Status      RunStatus  `json:"status" db:"status"`
	Processed   int        `json:"processed" db:"processed"`
	Successful  int        `json:"successful" db:"successful"`
	Failed      int        `json:"failed" db:"failed"`
	TotalFights int        `json:"total_fights" db:"total_fights"`
	ErrorsCount int        `json:"errors_count" db:"errors_count"`
	ErrorText   string     `json:"error_text" db:"error_text"`
}

// EventFailure names a failed event and its terminal error class.
type EventFailure struct {
	Name  string
	Class string
}

// Summary is returned by a full sync run.
type Summary struct {
	RunID        uuid.UUID
	Processed    int
	Successful   int
	Failed       int
	TotalFights  int
	Duration     time.Duration
	FailedEvents []EventFailure
}

// RankingsSummary is returned by a rankings refresh. Skipped is true when
// the refresh was rate-limited into a no-op.
type RankingsSummary struct {
	Divisions int
	Entries   int
	Skipped   bool
}
