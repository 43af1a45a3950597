package storage

import (
	"context"
	"errors"

	"fightsync/models"
)

// Sentinel errors the loader branches on. Transport failures are wrapped
// with %w around the underlying error; anything else is malformed.
var (
	ErrNotFound  = errors.New("storage: not found")
	ErrConflict  = errors.New("storage: conflict")
	ErrMalformed = errors.New("storage: malformed request")
)

// Store is the relational backend for events, fighters, fights, and
// rankings. Lookups return (nil, nil) when no row matches. Creates may not
// populate the ID (the REST backend's POST returns an empty body); callers
// re-query by business key.
type Store interface {
	EventByName(ctx context.Context, name string) (*models.Event, error)
	CreateEvent(ctx context.Context, e *models.Event) error
	UpdateEventStatus(ctx context.Context, id int64, status models.EventStatus) error

	FighterByName(ctx context.Context, name string) (*models.Fighter, error)
	CreateFighter(ctx context.Context, f *models.Fighter) error
	PatchFighter(ctx context.Context, id int64, patch *models.FighterPatch) error
	FightersMissingRecord(ctx context.Context, limit int) ([]models.Fighter, error)

	FightByEventAndOrder(ctx context.Context, eventID int64, order int) (*models.Fight, error)
	CreateFight(ctx context.Context, f *models.Fight) error

	RankingsByDivision(ctx context.Context, division string) ([]models.Ranking, error)
	DeleteDivisionRankings(ctx context.Context, division string) error
	CreateRanking(ctx context.Context, r *models.Ranking) error

	Close()
}
