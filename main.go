package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fightsync/config"
	"fightsync/httputil"
	"fightsync/logging"
	"fightsync/models"
	"fightsync/scheduler"
	"fightsync/scraper"
	"fightsync/services"
	"fightsync/storage"
	"fightsync/workers"
)

var (
	syncNow     = flag.Bool("sync", false, "Run a full sync once and exit")
	rankingsNow = flag.Bool("rankings", false, "Refresh rankings once and exit")
	maxEvents   = flag.Int("max-events", 0, "Limit the number of events processed (0 = all)")
	startFrom   = flag.Int("start-from", 0, "Skip the first N discovered events")
)

func main() {
	flag.Parse()

	logFile, err := logging.Setup(logging.Options{Path: "fightsync.log"})
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting fightsync...")

	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("%v", err)
		os.Exit(2)
	}
	if *maxEvents > 0 {
		cfg.MaxEvents = *maxEvents
	}
	if *startFrom > 0 {
		cfg.StartFrom = *startFrom
	}

	log.Printf("Loaded %d source configs", len(cfg.Sources))
	for id, src := range cfg.Sources {
		log.Printf("  - %s (%s)", src.Name, id)
	}

	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	opsStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer opsStore.Close()
	log.Printf("Operational database: %s", cfg.DBPath)

	fetcher := httputil.NewFetcher(cfg.HTTPTimeout, cfg.RateLimits())

	eventsSrc := cfg.Sources["wikipedia_events"]
	rankingsSrc := cfg.Sources["ufc_rankings"]

	resolver := services.NewResolver()
	loader := services.NewLoader(store, resolver)

	discoverer := scraper.NewDiscoverer(fetcher, eventsSrc)
	extractor := scraper.NewEventExtractor(fetcher, eventsSrc)
	rankingsExtractor := scraper.NewRankingsExtractor(fetcher, rankingsSrc)

	syncSvc := services.NewSyncService(discoverer, extractor, loader, opsStore, cfg.Workers, eventsSrc.ID)
	rankingsSvc := services.NewRankingsService(rankingsExtractor, loader, opsStore)

	if *syncNow {
		summary, err := syncSvc.RunFullSync(ctx, services.SyncOptions{
			MaxEvents: cfg.MaxEvents,
			StartFrom: cfg.StartFrom,
		})
		if err != nil {
			log.Printf("Sync failed: %v", err)
			os.Exit(1)
		}
		printSummary(summary)
		return
	}

	if *rankingsNow {
		summary, err := rankingsSvc.Refresh(ctx)
		if err != nil {
			log.Printf("Rankings refresh failed: %v", err)
			os.Exit(1)
		}
		if summary.Skipped {
			log.Println("Rankings refresh skipped (recent refresh exists)")
		} else {
			log.Printf("Rankings refreshed: %d divisions, %d entries", summary.Divisions, summary.Entries)
		}
		return
	}

	// Daemon mode
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.New(cfg, syncSvc, rankingsSvc, opsStore)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	enrichmentWorker := workers.NewEnrichmentWorker(store, fetcher, rankingsSrc)
	go enrichmentWorker.Run(ctx, 10, 5*time.Minute)
	sched.SetWorkers(enrichmentWorker)
	log.Println("Enrichment worker started")

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	cancel()
	sched.Stop()
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		store, err := storage.NewPostgresStore(ctx, cfg.Store.DBURL)
		if err != nil {
			return nil, err
		}
		log.Printf("Connected to Postgres: %s", maskConnString(cfg.Store.DBURL))
		return store, nil
	case "rest":
		log.Printf("Using REST store: %s", cfg.Store.URL)
		return storage.NewRESTStore(cfg.Store.URL, cfg.Store.Key, cfg.HTTPTimeout), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func printSummary(s *models.Summary) {
	log.Printf("Sync complete: %d processed, %d ok, %d failed, %d fights in %s",
		s.Processed, s.Successful, s.Failed, s.TotalFights, s.Duration.Round(time.Second))
	for _, fail := range s.FailedEvents {
		log.Printf("  failed: %s (%s)", fail.Name, fail.Class)
	}
	if s.Failed > 0 && s.Successful == 0 {
		os.Exit(1)
	}
}

func maskConnString(conn string) string {
	if at := strings.LastIndex(conn, "@"); at >= 0 {
		if scheme := strings.Index(conn, "://"); scheme >= 0 {
			return conn[:scheme+3] + "***" + conn[at:]
		}
	}
	return conn
}
