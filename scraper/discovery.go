package scraper

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"fightsync/config"
	"fightsync/htmlutil"
	"fightsync/httputil"
	"fightsync/models"
)

// Discoverer turns the events index page into EventStubs.
type Discoverer struct {
	fetcher *httputil.Fetcher
	cfg     *config.SourceConfig
}

func NewDiscoverer(fetcher *httputil.Fetcher, cfg *config.SourceConfig) *Discoverer {
	return &Discoverer{fetcher: fetcher, cfg: cfg}
}

// Discover fetches the index page and returns the stubs of all past
// events, in page order.
func (d *Discoverer) Discover(ctx context.Context) ([]models.EventStub, error) {
	data, err := d.fetcher.Fetch(ctx, d.cfg.IndexURL)
	if err != nil {
		return nil, err
	}
	return d.parseIndex(data, d.cfg.IndexURL)
}

// parseIndex picks the table mentioning the configured token the most —
// the past-events table survives page restructuring that way — and walks
// its rows.
func (d *Discoverer) parseIndex(data []byte, baseURL string) ([]models.EventStub, error) {
	doc, err := htmlutil.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse index page: %w", err)
	}

	table := d.pickEventsTable(doc)
	if table == nil {
		return nil, fmt.Errorf("no table mentioning %q on index page", d.cfg.TableToken)
	}

	var stubs []models.EventStub
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if stub, ok := d.parseIndexRow(tr, baseURL); ok {
			stubs = append(stubs, stub)
		}
	})
	return stubs, nil
}

// pickEventsTable returns the table with the highest token count;
// earliest in document order wins ties.
func (d *Discoverer) pickEventsTable(doc *goquery.Document) *goquery.Selection {
	var best *goquery.Selection
	bestCount := 0
	for _, table := range htmlutil.Tables(doc) {
		count := strings.Count(table.Text(), d.cfg.TableToken)
		if count > bestCount {
			best = table
			bestCount = count
		}
	}
	return best
}

func (d *Discoverer) parseIndexRow(tr *goquery.Selection, baseURL string) (models.EventStub, bool) {
	cells := tr.Find("th, td")
	if cells.Length() < d.cfg.MinIndexCells {
		return models.EventStub{}, false
	}

	name := htmlutil.CellText(cells.Eq(1))
	if name == "" || name == "Event" || htmlutil.CellText(cells.Eq(0)) == "#" {
		return models.EventStub{}, false
	}
	if !strings.Contains(name, d.cfg.TableToken) {
		return models.EventStub{}, false
	}

	links := htmlutil.Links(cells.Eq(1))
	if len(links) == 0 {
		return models.EventStub{}, false
	}
	pageURL := htmlutil.AbsoluteURL(baseURL, links[0].Href)
	if pageURL == "" {
		log.Printf("discovery: dropping %q, unresolvable link %q", name, links[0].Href)
		return models.EventStub{}, false
	}

	return models.EventStub{
		Name:      NormalizeName(name),
		ListDate:  ParseDate(htmlutil.CellText(cells.Eq(2))),
		Venue:     htmlutil.CellText(cells.Eq(3)),
		Location:  htmlutil.CellText(cells.Eq(4)),
		SourceURL: pageURL,
	}, true
}
