package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"fightsync/models"
	"fightsync/storage"
)

// LoaderError wraps store failures the taxonomy doesn't name.
type LoaderError struct {
	Op  string
	Key string
	Err error
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("loader %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *LoaderError) Unwrap() error { return e.Err }

// Loader performs idempotent upserts against the relational store. The
// store's POST returns an empty body, so every insert is followed by a
// re-query on the business key to learn the id.
type Loader struct {
	store    storage.Store
	resolver *Resolver
}

func NewLoader(store storage.Store, resolver *Resolver) *Loader {
	return &Loader{store: store, resolver: resolver}
}

// UpsertEvent returns the id for the event name, creating the row on first
// observation. Re-ingesting the same name reuses the existing id.
func (l *Loader) UpsertEvent(ctx context.Context, meta *models.EventMeta, status models.EventStatus) (int64, error) {
	if id, ok := l.resolver.Event(meta.Name); ok {
		return id, nil
	}

	existing, err := l.store.EventByName(ctx, meta.Name)
	if err != nil {
		return 0, &LoaderError{Op: "get event", Key: meta.Name, Err: err}
	}
	if existing != nil {
		l.resolver.PutEvent(meta.Name, existing.ID)
		if existing.Status != status && status == models.EventStatusCompleted {
			if err := l.store.UpdateEventStatus(ctx, existing.ID, status); err != nil {
				log.Printf("loader: event %q status update failed: %v", meta.Name, err)
			}
		}
		return existing.ID, nil
	}

	event := &models.Event{
		Name:      meta.Name,
		Date:      meta.Date,
		Venue:     meta.Venue,
		Location:  meta.Location,
		Status:    status,
		SourceURL: meta.SourceURL,
	}
	if err := l.store.CreateEvent(ctx, event); err != nil && !errors.Is(err, storage.ErrConflict) {
		return 0, &LoaderError{Op: "create event", Key: meta.Name, Err: err}
	}

	created, err := l.store.EventByName(ctx, meta.Name)
	if err != nil {
		return 0, &LoaderError{Op: "requery event", Key: meta.Name, Err: err}
	}
	if created == nil {
		return 0, &LoaderError{Op: "requery event", Key: meta.Name, Err: storage.ErrNotFound}
	}
	l.resolver.PutEvent(meta.Name, created.ID)
	return created.ID, nil
}

// UpsertFighter returns the id for the fighter name, creating a minimal
// row on first reference. A non-nil patch is applied when a more
// authoritative source supplied fields.
func (l *Loader) UpsertFighter(ctx context.Context, name string, patch *models.FighterPatch) (int64, error) {
	if id, ok := l.resolver.Fighter(name); ok {
		if !patch.Empty() {
			if err := l.store.PatchFighter(ctx, id, patch); err != nil {
				log.Printf("loader: fighter %q patch failed: %v", name, err)
			}
		}
		return id, nil
	}

	existing, err := l.store.FighterByName(ctx, name)
	if err != nil {
		return 0, &LoaderError{Op: "get fighter", Key: name, Err: err}
	}
	if existing == nil {
		fighter := &models.Fighter{Name: name, IsActive: true}
		if err := l.store.CreateFighter(ctx, fighter); err != nil && !errors.Is(err, storage.ErrConflict) {
			return 0, &LoaderError{Op: "create fighter", Key: name, Err: err}
		}
		existing, err = l.store.FighterByName(ctx, name)
		if err != nil {
			return 0, &LoaderError{Op: "requery fighter", Key: name, Err: err}
		}
		if existing == nil {
			return 0, &LoaderError{Op: "requery fighter", Key: name, Err: storage.ErrNotFound}
		}
	}

	l.resolver.PutFighter(name, existing.ID)
	if !patch.Empty() {
		if err := l.store.PatchFighter(ctx, existing.ID, patch); err != nil {
			log.Printf("loader: fighter %q patch failed: %v", name, err)
		}
	}
	return existing.ID, nil
}

// UpsertFight persists one fight row. The bool reports whether a new row
// was inserted; an existing (event_id, fight_order) row is left untouched.
func (l *Loader) UpsertFight(ctx context.Context, eventID int64, row *models.FightRow) (bool, error) {
	existing, err := l.store.FightByEventAndOrder(ctx, eventID, row.FightOrder)
	if err != nil {
		return false, &LoaderError{Op: "get fight", Key: fmt.Sprintf("%d/%d", eventID, row.FightOrder), Err: err}
	}
	if existing != nil {
		return false, nil
	}

	fight := &models.Fight{
		EventID:       eventID,
		WeightClass:   row.WeightClass,
		Fighter1Name:  row.WinnerName,
		Fighter2Name:  row.LoserName,
		WinnerName:    row.WinnerName,
		LoserName:     row.LoserName,
		Method:        row.Method,
		MethodDetail:  row.MethodDetail,
		Round:         row.Round,
		Time:          row.Time,
		FightOrder:    row.FightOrder,
		IsMainEvent:   row.FightOrder == 1,
		IsCoMainEvent: row.FightOrder == 2,
		Status:        "completed",
	}
	if err := l.store.CreateFight(ctx, fight); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return false, nil
		}
		return false, &LoaderError{Op: "create fight", Key: fmt.Sprintf("%d/%d", eventID, row.FightOrder), Err: err}
	}
	return true, nil
}

// LoadEvent upserts the event, its fighters, and its fights in ascending
// fight order. Returns the number of fights persisted (new or existing).
func (l *Loader) LoadEvent(ctx context.Context, rec *models.EventRecord) (int, error) {
	eventID, err := l.UpsertEvent(ctx, &rec.Meta, rec.Status)
	if err != nil {
		return 0, err
	}

	loaded := 0
	for i := range rec.Fights {
		row := &rec.Fights[i]

		wc := row.WeightClass
		patch := &models.FighterPatch{}
		if wc != "" {
			patch.WeightClass = &wc
		}
		if _, err := l.UpsertFighter(ctx, row.WinnerName, patch); err != nil {
			return loaded, err
		}
		if _, err := l.UpsertFighter(ctx, row.LoserName, patch); err != nil {
			return loaded, err
		}

		if _, err := l.UpsertFight(ctx, eventID, row); err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}

// ReplaceDivisionRankings swaps one division's rankings as a unit: delete
// every existing row for the division, then insert the new set in rank
// order. Other divisions are untouched.
func (l *Loader) ReplaceDivisionRankings(ctx context.Context, division string, entries []models.RankEntry) error {
	resolved := make([]models.Ranking, 0, len(entries))
	for _, entry := range entries {
		ranking := entry.RankPosition
		patch := &models.FighterPatch{}
		if entry.RankType != models.RankTypeP4P {
			patch.UFCRanking = &ranking
		}
		fighterID, err := l.UpsertFighter(ctx, entry.FighterName, patch)
		if err != nil {
			return err
		}
		resolved = append(resolved, models.Ranking{
			FighterID:    fighterID,
			Division:     division,
			RankPosition: entry.RankPosition,
			RankType:     entry.RankType,
		})
	}

	if err := l.store.DeleteDivisionRankings(ctx, division); err != nil {
		return &LoaderError{Op: "delete rankings", Key: division, Err: err}
	}
	for i := range resolved {
		if err := l.store.CreateRanking(ctx, &resolved[i]); err != nil && !errors.Is(err, storage.ErrConflict) {
			return &LoaderError{Op: "create ranking", Key: division, Err: err}
		}
	}
	return nil
}
