package scraper

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"fightsync/config"
	"fightsync/htmlutil"
	"fightsync/httputil"
	"fightsync/identity"
	"fightsync/models"
)

// RankingsExtractor scrapes the UFC rankings page into per-division
// ranked fighter lists.
type RankingsExtractor struct {
	fetcher *httputil.Fetcher
	cfg     *config.SourceConfig
}

func NewRankingsExtractor(fetcher *httputil.Fetcher, cfg *config.SourceConfig) *RankingsExtractor {
	return &RankingsExtractor{fetcher: fetcher, cfg: cfg}
}

func (x *RankingsExtractor) Extract(ctx context.Context) ([]models.DivisionRanking, error) {
	data, err := x.fetcher.Fetch(ctx, x.cfg.RankingsURL)
	if err != nil {
		return nil, err
	}
	return x.parseRankings(data)
}

func (x *RankingsExtractor) parseRankings(data []byte) ([]models.DivisionRanking, error) {
	doc, err := htmlutil.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse rankings page: %w", err)
	}

	// Champions already emitted this run, keyed by normalized name, so a
	// champion duplicated into the contender table is suppressed.
	champions := make(map[string]bool)

	var divisions []models.DivisionRanking
	doc.Find(".view-grouping").Each(func(_ int, group *goquery.Selection) {
		division, ok := CanonicalDivision(htmlutil.CellText(group.Find(".view-grouping-header").First()))
		if !ok {
			return
		}

		dr := models.DivisionRanking{Division: division}
		contenderType := models.RankTypeContender
		if strings.Contains(division, "Pound-for-Pound") {
			contenderType = models.RankTypeP4P
		}

		// Champion block: h5 > a in the caption area. P4P groups have no
		// champion slot.
		if contenderType == models.RankTypeContender {
			champ := NormalizeName(htmlutil.CellText(group.Find("h5 a").First()))
			if champ != "" {
				champions[identity.Key(champ)] = true
				dr.Entries = append(dr.Entries, models.RankEntry{
					FighterName:  champ,
					Division:     division,
					RankPosition: 0,
					RankType:     models.RankTypeChampion,
				})
			}
		}

		group.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
			rankText := htmlutil.CellText(tr.Find("td").First())
			rank, err := strconv.Atoi(rankText)
			if err != nil {
				// "NR" and interim-champion annotations land here.
				return
			}
			name := NormalizeName(htmlutil.CellText(tr.Find("td a").First()))
			if name == "" {
				return
			}
			if champions[identity.Key(name)] {
				log.Printf("rankings: %s champion %q duplicated as contender, skipping", division, name)
				return
			}
			dr.Entries = append(dr.Entries, models.RankEntry{
				FighterName:  name,
				Division:     division,
				RankPosition: rank,
				RankType:     contenderType,
			})
		})

		if len(dr.Entries) > 0 {
			divisions = append(divisions, dr)
		}
	})

	if len(divisions) == 0 {
		return nil, fmt.Errorf("no division groupings found on rankings page")
	}
	return divisions, nil
}

// CanonicalDivision maps a raw division heading to its canonical spelling.
// The page sometimes prefixes headings with a "Top Rank" artifact.
func CanonicalDivision(raw string) (string, bool) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "Top Rank"))
	key := strings.ToLower(raw)
	key = strings.ReplaceAll(key, "’", "'")

	for _, division := range models.Divisions {
		if strings.ToLower(division) == key {
			return division, true
		}
	}

	// Pound-for-pound headings vary ("Men's Pound-for-Pound Top Rank",
	// "Pound-for-Pound").
	if strings.Contains(key, "pound-for-pound") {
		if strings.Contains(key, "women") {
			return "Women's Pound-for-Pound", true
		}
		return "Men's Pound-for-Pound", true
	}
	return "", false
}
