package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"fightsync/httputil"
	"fightsync/models"
	"fightsync/scraper"
	"fightsync/storage"
)

const (
	eventAttempts = 3
	retryDelay    = 2 * time.Second
	politenessGap = 1 * time.Second
	progressEvery = 20
)

// ErrNoEvents is returned when discovery yields an empty event list.
var ErrNoEvents = errors.New("discovery returned no events")

// ErrSyncInProgress is returned when a full sync is already running.
var ErrSyncInProgress = errors.New("sync already in progress")

// errEventPanic marks an event whose processing panicked.
var errEventPanic = errors.New("event processing panicked")

// SyncOptions narrows a full sync run. Zero values mean no limit.
// StartFrom skips the first N discovered events.
type SyncOptions struct {
	MaxEvents int
	StartFrom int
}

// SyncService orchestrates discovery, per-event extraction, and loading
// across a fixed worker pool.
type SyncService struct {
	discoverer *scraper.Discoverer
	extractor  *scraper.EventExtractor
	loader     *Loader
	ops        *storage.SQLiteStore
	workers    int
	sourceID   string

	mu      sync.Mutex
	running bool
	paused  bool
}

func NewSyncService(discoverer *scraper.Discoverer, extractor *scraper.EventExtractor, loader *Loader, ops *storage.SQLiteStore, workers int, sourceID string) *SyncService {
	if workers < 1 {
		workers = 1
	}
	return &SyncService{
		discoverer: discoverer,
		extractor:  extractor,
		loader:     loader,
		ops:        ops,
		workers:    workers,
		sourceID:   sourceID,
	}
}

// Pause stops workers from picking up new events. In-flight events finish.
func (s *SyncService) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	log.Println("sync: paused")
}

// Resume lifts a pause.
func (s *SyncService) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	log.Println("sync: resumed")
}

func (s *SyncService) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// RunFullSync discovers the event index and processes every discovered
// event through a pool of workers. A partial summary is returned alongside
// the error when the run is cancelled mid-flight.
func (s *SyncService) RunFullSync(ctx context.Context, opts SyncOptions) (*models.Summary, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	run := &models.SyncRun{
		RunID:     uuid.New(),
		Kind:      models.RunKindFullSync,
		StartedAt: start,
		Status:    models.RunStatusRunning,
	}
	opsID, err := s.ops.CreateRun(run)
	if err != nil {
		log.Printf("sync: run record failed: %v", err)
	}
	run.ID = opsID

	stubs, err := s.discoverer.Discover(ctx)
	if err != nil {
		s.finishRun(run, models.RunStatusFailed, err)
		return nil, fmt.Errorf("discover events: %w", err)
	}
	stubs = applyOptions(stubs, opts)
	if len(stubs) == 0 {
		s.finishRun(run, models.RunStatusFailed, ErrNoEvents)
		return nil, ErrNoEvents
	}
	log.Printf("sync: run %s processing %d events with %d workers", run.RunID, len(stubs), s.workers)

	var (
		counterMu sync.Mutex
		summary   = models.Summary{RunID: run.RunID}
	)

	jobs := make(chan models.EventStub, s.workers)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for stub := range jobs {
				for s.isPaused() {
					select {
					case <-ctx.Done():
						return
					case <-time.After(time.Second):
					}
				}

				fights, err := s.safeProcessEvent(ctx, stub)

				counterMu.Lock()
				summary.Processed++
				if err != nil {
					summary.Failed++
					summary.FailedEvents = append(summary.FailedEvents, models.EventFailure{
						Name:  stub.Name,
						Class: classify(err),
					})
					log.Printf("sync: event %q failed: %v", stub.Name, err)
					s.ops.Log(&run.ID, models.LogLevelError,
						fmt.Sprintf("event %q failed: %v", stub.Name, err), s.sourceID)
				} else {
					summary.Successful++
					summary.TotalFights += fights
				}
				if summary.Processed%progressEvery == 0 {
					log.Printf("sync: progress %d/%d (%d ok, %d failed, %d fights)",
						summary.Processed, len(stubs), summary.Successful, summary.Failed, summary.TotalFights)
				}
				counterMu.Unlock()

				select {
				case <-ctx.Done():
					return
				case <-time.After(politenessGap):
				}
			}
		}(i)
	}

feed:
	for _, stub := range stubs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- stub:
		}
	}
	close(jobs)
	wg.Wait()

	summary.Duration = time.Since(start)
	run.Processed = summary.Processed
	run.Successful = summary.Successful
	run.Failed = summary.Failed
	run.TotalFights = summary.TotalFights
	run.ErrorsCount = len(summary.FailedEvents)

	if ctx.Err() != nil {
		s.finishRun(run, models.RunStatusCancelled, ctx.Err())
		log.Printf("sync: run %s cancelled after %d events", run.RunID, summary.Processed)
		return &summary, ctx.Err()
	}

	s.finishRun(run, models.RunStatusCompleted, nil)
	s.recordStats(summary.TotalFights)
	log.Printf("sync: run %s done in %s: %d ok, %d failed, %d fights",
		run.RunID, summary.Duration.Round(time.Second), summary.Successful, summary.Failed, summary.TotalFights)
	return &summary, nil
}

// safeProcessEvent turns a panic while processing one event into a
// counted failure so the worker keeps draining the queue.
func (s *SyncService) safeProcessEvent(ctx context.Context, stub models.EventStub) (fights int, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("sync: event %q panicked: %v", stub.Name, r)
			fights = 0
			err = fmt.Errorf("%w: %v", errEventPanic, r)
		}
	}()
	return s.processEvent(ctx, stub)
}

// processEvent extracts and loads one event, retrying transient failures.
func (s *SyncService) processEvent(ctx context.Context, stub models.EventStub) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= eventAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		rec, err := s.extractor.Extract(ctx, stub)
		if err != nil {
			lastErr = err
			if errors.Is(err, context.Canceled) {
				return 0, err
			}
			continue
		}

		fights, err := s.loader.LoadEvent(ctx, rec)
		if err != nil {
			lastErr = err
			continue
		}
		return fights, nil
	}
	return 0, lastErr
}

// HandleCommand dispatches one operational command from the command queue.
func (s *SyncService) HandleCommand(ctx context.Context, cmd models.CommandType, params *models.CommandParams) error {
	switch cmd {
	case models.CmdSyncNow:
		opts := SyncOptions{}
		if params != nil {
			opts.MaxEvents = params.MaxEvents
			opts.StartFrom = params.StartFrom
		}
		_, err := s.RunFullSync(ctx, opts)
		return err
	case models.CmdPause:
		s.Pause()
		return nil
	case models.CmdResume:
		s.Resume()
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (s *SyncService) finishRun(run *models.SyncRun, status models.RunStatus, cause error) {
	now := time.Now()
	run.FinishedAt = &now
	run.Status = status
	if cause != nil {
		run.ErrorText = cause.Error()
	}
	if err := s.ops.UpdateRun(run); err != nil {
		log.Printf("sync: run update failed: %v", err)
	}
}

func (s *SyncService) recordStats(fights int) {
	if err := s.ops.UpdateSourceStats(s.sourceID, models.RunStatusCompleted, fights); err != nil {
		log.Printf("sync: source stats update failed: %v", err)
	}
}

func applyOptions(stubs []models.EventStub, opts SyncOptions) []models.EventStub {
	if opts.StartFrom > 0 {
		if opts.StartFrom >= len(stubs) {
			return nil
		}
		stubs = stubs[opts.StartFrom:]
	}
	if opts.MaxEvents > 0 && len(stubs) > opts.MaxEvents {
		stubs = stubs[:opts.MaxEvents]
	}
	return stubs
}

// classify buckets a terminal event error for the failure report.
func classify(err error) string {
	var fe *httputil.FetchError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, errEventPanic):
		return "panic"
	case errors.As(err, &fe):
		return "fetch"
	case errors.Is(err, storage.ErrMalformed):
		return "malformed"
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrConflict):
		return "store"
	default:
		var le *LoaderError
		if errors.As(err, &le) {
			return "store"
		}
		return "parse"
	}
}
