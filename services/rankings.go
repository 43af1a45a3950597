package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"fightsync/models"
	"fightsync/scraper"
	"fightsync/storage"
)

// minRefreshGap is the floor between two rankings refreshes. A refresh
// inside the gap is a no-op reported with Skipped=true.
const minRefreshGap = time.Hour

// ErrRefreshInProgress is returned when a refresh is already running.
var ErrRefreshInProgress = errors.New("rankings refresh already in progress")

// RankingsService refreshes division rankings from the rankings page and
// replaces them division by division in the store.
type RankingsService struct {
	extractor *scraper.RankingsExtractor
	loader    *Loader
	ops       *storage.SQLiteStore

	mu      sync.Mutex
	running bool
}

func NewRankingsService(extractor *scraper.RankingsExtractor, loader *Loader, ops *storage.SQLiteStore) *RankingsService {
	return &RankingsService{extractor: extractor, loader: loader, ops: ops}
}

// Refresh extracts the current rankings and replaces each division in the
// store. At most one refresh runs at a time, and at most one per hour.
func (s *RankingsService) Refresh(ctx context.Context) (*models.RankingsSummary, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrRefreshInProgress
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if last, err := s.ops.GetLastRunTime(models.RunKindRankings); err == nil && !last.IsZero() {
		if since := time.Since(last); since < minRefreshGap {
			log.Printf("rankings: last refresh %s ago, skipping", since.Round(time.Second))
			return &models.RankingsSummary{Skipped: true}, nil
		}
	}

	run := &models.SyncRun{
		RunID:     uuid.New(),
		Kind:      models.RunKindRankings,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	runID, err := s.ops.CreateRun(run)
	if err != nil {
		log.Printf("rankings: run record failed: %v", err)
	}
	run.ID = runID

	divisions, err := s.extractor.Extract(ctx)
	if err != nil {
		s.finishRun(run, models.RunStatusFailed, err)
		return nil, err
	}

	summary := &models.RankingsSummary{}
	for _, div := range divisions {
		if err := s.loader.ReplaceDivisionRankings(ctx, div.Division, div.Entries); err != nil {
			s.finishRun(run, models.RunStatusFailed, err)
			return summary, err
		}
		summary.Divisions++
		summary.Entries += len(div.Entries)
	}

	run.Processed = summary.Divisions
	run.Successful = summary.Divisions
	s.finishRun(run, models.RunStatusCompleted, nil)
	log.Printf("rankings: refreshed %d divisions, %d entries", summary.Divisions, summary.Entries)
	return summary, nil
}

func (s *RankingsService) finishRun(run *models.SyncRun, status models.RunStatus, cause error) {
	now := time.Now()
	run.FinishedAt = &now
	run.Status = status
	if cause != nil {
		run.ErrorsCount++
		run.ErrorText = cause.Error()
		s.ops.Log(&run.ID, models.LogLevelError, cause.Error(), "ufc_rankings")
	}
	if err := s.ops.UpdateRun(run); err != nil {
		log.Printf("rankings: run update failed: %v", err)
	}
}
