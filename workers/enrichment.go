package workers

import (
	"context"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fightsync/config"
	"fightsync/htmlutil"
	"fightsync/httputil"
	"fightsync/identity"
	"fightsync/models"
	"fightsync/storage"
)

var recordRe = regexp.MustCompile(`(\d+)-(\d+)-(\d+)`)

// EnrichmentWorker fills in fighter profiles (record, nickname) from
// athlete pages for fighters that only exist as fight-table names.
type EnrichmentWorker struct {
	store     storage.Store
	fetcher   *httputil.Fetcher
	cfg       *config.SourceConfig
	triggerCh chan struct{}
}

func NewEnrichmentWorker(store storage.Store, fetcher *httputil.Fetcher, cfg *config.SourceConfig) *EnrichmentWorker {
	return &EnrichmentWorker{
		store:     store,
		fetcher:   fetcher,
		cfg:       cfg,
		triggerCh: make(chan struct{}, 1),
	}
}

// Trigger requests an immediate batch. Coalesces if one is already queued.
func (w *EnrichmentWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

func (w *EnrichmentWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("enrichment: worker stopping")
			return
		case <-ticker.C:
			w.processBatch(ctx, batchSize)
		case <-w.triggerCh:
			log.Println("enrichment: triggered manually")
			w.processBatch(ctx, batchSize)
		}
	}
}

func (w *EnrichmentWorker) processBatch(ctx context.Context, batchSize int) {
	fighters, err := w.store.FightersMissingRecord(ctx, batchSize)
	if err != nil {
		log.Printf("enrichment: fetch candidates: %v", err)
		return
	}
	if len(fighters) == 0 {
		return
	}
	log.Printf("enrichment: processing %d fighters", len(fighters))

	enriched := 0
	for _, fighter := range fighters {
		if ctx.Err() != nil {
			return
		}
		patch, err := w.fetchProfile(ctx, fighter.Name)
		if err != nil {
			log.Printf("enrichment: %q: %v", fighter.Name, err)
			continue
		}
		if patch.Empty() {
			continue
		}
		if err := w.store.PatchFighter(ctx, fighter.ID, patch); err != nil {
			log.Printf("enrichment: patch %q: %v", fighter.Name, err)
			continue
		}
		enriched++

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
	log.Printf("enrichment: batch done, %d/%d enriched", enriched, len(fighters))
}

// fetchProfile scrapes one athlete page into a patch. Pages for fighters
// the site doesn't know return an empty patch, not an error.
func (w *EnrichmentWorker) fetchProfile(ctx context.Context, name string) (*models.FighterPatch, error) {
	profileURL := w.cfg.AthleteURL + identity.Slug(name)
	data, err := w.fetcher.Fetch(ctx, profileURL)
	if err != nil {
		return nil, err
	}

	doc, err := htmlutil.Parse(data)
	if err != nil {
		return nil, err
	}

	patch := &models.FighterPatch{}

	division := strings.TrimSpace(doc.Find("p.hero-profile__division-body").First().Text())
	if m := recordRe.FindStringSubmatch(division); m != nil {
		wins, _ := strconv.Atoi(m[1])
		losses, _ := strconv.Atoi(m[2])
		draws, _ := strconv.Atoi(m[3])
		patch.Wins = &wins
		patch.Losses = &losses
		patch.Draws = &draws
	}

	nickname := strings.Trim(strings.TrimSpace(doc.Find(".hero-profile__nickname").First().Text()), `"`)
	if nickname != "" {
		patch.Nickname = &nickname
	}

	return patch, nil
}
