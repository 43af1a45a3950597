package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"fightsync/config"
	"fightsync/models"
	"fightsync/services"
	"fightsync/storage"
)

// Triggerable allows workers to be triggered manually
type Triggerable interface {
	Trigger()
}

type Scheduler struct {
	cfg      *config.Config
	sync     *services.SyncService
	rankings *services.RankingsService
	ops      *storage.SQLiteStore
	cron     *cron.Cron
	ticker   *time.Ticker
	stopCh   chan struct{}

	enrichmentWorker Triggerable
}

func New(cfg *config.Config, syncSvc *services.SyncService, rankings *services.RankingsService, ops *storage.SQLiteStore) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		sync:     syncSvc,
		rankings: rankings,
		ops:      ops,
		cron:     cron.New(),
		stopCh:   make(chan struct{}),
	}
}

// SetWorkers registers background workers for manual triggering
func (s *Scheduler) SetWorkers(enrichment Triggerable) {
	s.enrichmentWorker = enrichment
}

func (s *Scheduler) Start(ctx context.Context) error {
	go s.pollCommands(ctx)

	if s.cfg.Scheduler.SyncCron != "" {
		log.Printf("Starting scheduler with sync cron: %s", s.cfg.Scheduler.SyncCron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.SyncCron, func() {
			if _, err := s.sync.RunFullSync(ctx, services.SyncOptions{MaxEvents: s.cfg.MaxEvents}); err != nil {
				if !errors.Is(err, services.ErrSyncInProgress) {
					log.Printf("Scheduled sync error: %v", err)
				}
			}
		})
		if err != nil {
			return fmt.Errorf("invalid sync cron expression: %w", err)
		}
	} else if s.cfg.Scheduler.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", s.cfg.Scheduler.Interval)
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					if _, err := s.sync.RunFullSync(ctx, services.SyncOptions{MaxEvents: s.cfg.MaxEvents}); err != nil {
						if !errors.Is(err, services.ErrSyncInProgress) {
							log.Printf("Scheduled sync error: %v", err)
						}
					}
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		log.Println("No sync schedule configured, daemon will only respond to commands")
	}

	if s.cfg.Scheduler.RankingsCron != "" {
		log.Printf("Starting rankings refresh with cron: %s", s.cfg.Scheduler.RankingsCron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.RankingsCron, func() {
			if _, err := s.rankings.Refresh(ctx); err != nil {
				if !errors.Is(err, services.ErrRefreshInProgress) {
					log.Printf("Scheduled rankings error: %v", err)
				}
			}
		})
		if err != nil {
			return fmt.Errorf("invalid rankings cron expression: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cmds, err := s.ops.GetPendingCommands()
			if err != nil {
				log.Printf("Error getting commands: %v", err)
				continue
			}

			for _, cmd := range cmds {
				log.Printf("Processing command: %s", cmd.Command)
				if err := s.handleCommand(ctx, &cmd); err != nil {
					log.Printf("Command error: %v", err)
				}
				if err := s.ops.MarkCommandProcessed(cmd.ID); err != nil {
					log.Printf("Error marking command processed: %v", err)
				}
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd *models.Command) error {
	switch cmd.Command {
	case models.CmdRefreshRankings:
		_, err := s.rankings.Refresh(ctx)
		return err
	case models.CmdRunEnrichment:
		if s.enrichmentWorker != nil {
			s.enrichmentWorker.Trigger()
			log.Println("Enrichment worker triggered via command")
		}
		return nil
	default:
		params, err := s.ops.ParseCommandParams(cmd)
		if err != nil {
			return err
		}
		return s.sync.HandleCommand(ctx, cmd.Command, params)
	}
}

func (s *Scheduler) TriggerNow(ctx context.Context) error {
	_, err := s.sync.RunFullSync(ctx, services.SyncOptions{MaxEvents: s.cfg.MaxEvents})
	return err
}
