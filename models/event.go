package models

import "time"

type EventStatus string

const (
	EventStatusScheduled EventStatus = "scheduled"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

// Event is a single UFC card. Name is the business key and is globally
// unique; ID is assigned by the store.
type Event struct {
	ID        int64       `json:"id,omitempty" db:"id"`
	Name      string      `json:"name" db:"name"`
	Date      *time.Time  `json:"date" db:"date"`
	Venue     *string     `json:"venue" db:"venue"`
	Location  *string     `json:"location" db:"location"`
	Status    EventStatus `json:"status" db:"status"`
	SourceURL string      `json:"source_url" db:"source_url"`
}

// EventStub is one row of the events index page, enough to fetch and
// identify the event page.
type EventStub struct {
	Name      string
	ListDate  *time.Time
	Venue     string
	Location  string
	SourceURL string
}

// EventMeta is the metadata extracted from a single event page, merged
// with the index-row stub.
type EventMeta struct {
	Name      string
	Date      *time.Time
	Venue     *string
	Location  *string
	SourceURL string
}

// EventRecord is the full extraction result for one event page.
type EventRecord struct {
	Meta   EventMeta
	Status EventStatus
	Fights []FightRow
}
