package models

import (
	"encoding/json"
	"time"
)

type CommandType string

const (
	CmdSyncNow         CommandType = "sync_now"
	CmdRefreshRankings CommandType = "refresh_rankings"
	CmdRunEnrichment   CommandType = "run_enrichment"
	CmdPause           CommandType = "pause"
	CmdResume          CommandType = "resume"
)

type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

type CommandParams struct {
	MaxEvents int    `json:"max_events,omitempty"`
	StartFrom int `json:"start_from,omitempty"`
}
