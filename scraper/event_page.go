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

// EventExtractor turns one event page into event metadata plus the
// ordered fight rows.
type EventExtractor struct {
	fetcher *httputil.Fetcher
	cfg     *config.SourceConfig
}

func NewEventExtractor(fetcher *httputil.Fetcher, cfg *config.SourceConfig) *EventExtractor {
	return &EventExtractor{fetcher: fetcher, cfg: cfg}
}

func (x *EventExtractor) Extract(ctx context.Context, stub models.EventStub) (*models.EventRecord, error) {
	data, err := x.fetcher.Fetch(ctx, stub.SourceURL)
	if err != nil {
		return nil, err
	}
	return x.parseEventPage(data, stub)
}

func (x *EventExtractor) parseEventPage(data []byte, stub models.EventStub) (*models.EventRecord, error) {
	doc, err := htmlutil.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse event page %s: %w", stub.SourceURL, err)
	}

	meta := x.extractMeta(doc, stub)
	fights := x.extractFights(doc, stub.Name)

	status := models.EventStatusScheduled
	if len(fights) > 0 || meta.Date != nil {
		status = models.EventStatusCompleted
	}

	return &models.EventRecord{Meta: meta, Status: status, Fights: fights}, nil
}

// extractMeta reads the infobox. The list-page date wins over the infobox
// date when both are present.
func (x *EventExtractor) extractMeta(doc *goquery.Document, stub models.EventStub) models.EventMeta {
	meta := models.EventMeta{
		Name:      stub.Name,
		Date:      stub.ListDate,
		SourceURL: stub.SourceURL,
	}
	if stub.Venue != "" {
		v := stub.Venue
		meta.Venue = &v
	}
	if stub.Location != "" {
		l := stub.Location
		meta.Location = &l
	}

	infobox := doc.Find("table.infobox").First()
	if infobox.Length() == 0 {
		return meta
	}

	if meta.Date == nil {
		if raw, ok := htmlutil.InfoboxField(infobox, "date"); ok {
			meta.Date = ParseDate(raw)
		}
	}
	if meta.Venue == nil {
		if raw, ok := htmlutil.InfoboxField(infobox, "venue"); ok && raw != "" {
			meta.Venue = &raw
		}
	}
	if meta.Location == nil {
		for _, label := range []string{"location", "city"} {
			if raw, ok := htmlutil.InfoboxField(infobox, label); ok && raw != "" {
				meta.Location = &raw
				break
			}
		}
	}
	return meta
}

// extractFights walks every fight table on the page in document order and
// numbers the surviving rows with a single running counter, so
// fight_order 1 is the main event no matter how the card is partitioned
// into tables. Skipped rows never consume an order slot.
func (x *EventExtractor) extractFights(doc *goquery.Document, eventName string) []models.FightRow {
	var fights []models.FightRow
	order := 1

	for _, table := range htmlutil.Tables(doc) {
		if !x.isFightTable(table) {
			continue
		}
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			row, err := x.parseFightRow(tr)
			if err != nil {
				log.Printf("event %q: dropping fight row: %v", eventName, err)
				return
			}
			if row == nil {
				return
			}
			row.FightOrder = order
			order++
			fights = append(fights, *row)
		})
	}
	return fights
}

// isFightTable applies the canonical-schema rule: at least one data row
// with exactly the configured column count, one cell of which is the
// defeat marker.
func (x *EventExtractor) isFightTable(table *goquery.Selection) bool {
	found := false
	table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		cells := tr.Find("td")
		if cells.Length() != x.cfg.FightColumns {
			return true
		}
		cells.EachWithBreak(func(_ int, td *goquery.Selection) bool {
			if strings.EqualFold(htmlutil.CellText(td), x.cfg.DefeatMarker) {
				found = true
				return false
			}
			return true
		})
		return !found
	})
	return found
}

// parseFightRow parses one candidate row. Returns (nil, nil) for rows that
// are not fight rows (headers, colspan section dividers, "vs." rows) and
// an error for rows that look like fights but are unusable.
func (x *EventExtractor) parseFightRow(tr *goquery.Selection) (*models.FightRow, error) {
	cells := tr.Find("td")
	if cells.Length() != x.cfg.FightColumns {
		// Section headers carry colspan and fewer cells; header rows
		// carry th cells. Neither consumes an order slot.
		return nil, nil
	}

	if !strings.EqualFold(htmlutil.CellText(cells.Eq(2)), x.cfg.DefeatMarker) {
		return nil, nil
	}

	winner := NormalizeName(htmlutil.CellText(cells.Eq(1)))
	loser := NormalizeName(htmlutil.CellText(cells.Eq(3)))
	if winner == "" || loser == "" {
		return nil, fmt.Errorf("empty fighter name (winner=%q loser=%q)", winner, loser)
	}

	method, detail := NormalizeMethod(htmlutil.CellText(cells.Eq(4)))

	return &models.FightRow{
		WeightClass:  htmlutil.CellText(cells.Eq(0)),
		WinnerName:   winner,
		LoserName:    loser,
		Method:       method,
		MethodDetail: detail,
		Round:        ParseRound(htmlutil.CellText(cells.Eq(5))),
		Time:         ParseFightTime(htmlutil.CellText(cells.Eq(6))),
	}, nil
}
