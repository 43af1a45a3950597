package scraper

import (
	"testing"

	"fightsync/config"
	"fightsync/models"
)

func findDivision(t *testing.T, divisions []models.DivisionRanking, name string) models.DivisionRanking {
	t.Helper()
	for _, d := range divisions {
		if d.Division == name {
			return d
		}
	}
	t.Fatalf("division %q not found in %+v", name, divisions)
	return models.DivisionRanking{}
}

func TestParseRankings(t *testing.T) {
	x := NewRankingsExtractor(nil, &config.SourceConfig{
		ID:          "ufc_rankings",
		RankingsURL: "https://www.ufc.com/rankings",
	})
	data := loadFixture(t, "rankings.html")

	divisions, err := x.parseRankings(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(divisions) != 3 {
		t.Fatalf("expected 3 divisions, got %d", len(divisions))
	}

	p4p := findDivision(t, divisions, "Men's Pound-for-Pound")
	if len(p4p.Entries) != 3 {
		t.Fatalf("expected 3 p4p entries, got %d", len(p4p.Entries))
	}
	for _, e := range p4p.Entries {
		if e.RankType != models.RankTypeP4P {
			t.Fatalf("p4p entry has rank type %s", e.RankType)
		}
		if e.RankPosition == 0 {
			t.Fatal("p4p division must not have a champion slot")
		}
	}

	lhw := findDivision(t, divisions, "Light Heavyweight")
	if len(lhw.Entries) != 3 {
		t.Fatalf("expected 3 light heavyweight entries, got %d: %+v", len(lhw.Entries), lhw.Entries)
	}
	champ := lhw.Entries[0]
	if champ.FighterName != "Alex Pereira" || champ.RankPosition != 0 || champ.RankType != models.RankTypeChampion {
		t.Fatalf("unexpected champion entry %+v", champ)
	}
	// The champion duplicated into the contender table is suppressed.
	for _, e := range lhw.Entries[1:] {
		if e.FighterName == "Alex Pereira" {
			t.Fatalf("champion duplicated as contender: %+v", e)
		}
		if e.RankType != models.RankTypeContender {
			t.Fatalf("contender entry has rank type %s", e.RankType)
		}
	}
	if lhw.Entries[1].FighterName != "Jamahal Hill" || lhw.Entries[1].RankPosition != 2 {
		t.Fatalf("unexpected first contender %+v", lhw.Entries[1])
	}

	// "Top Rank" heading prefix is stripped.
	fly := findDivision(t, divisions, "Flyweight")
	if fly.Entries[0].FighterName != "Alexandre Pantoja" {
		t.Fatalf("unexpected flyweight champion %+v", fly.Entries[0])
	}
}

func TestParseRankingsEmptyPage(t *testing.T) {
	x := NewRankingsExtractor(nil, &config.SourceConfig{ID: "ufc_rankings"})
	if _, err := x.parseRankings([]byte("<html><body></body></html>")); err == nil {
		t.Fatal("expected error for page without division groupings")
	}
}

func TestCanonicalDivision(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Light Heavyweight", "Light Heavyweight", true},
		{"Top Rank Flyweight", "Flyweight", true},
		{"Women's Strawweight", "Women's Strawweight", true},
		{"Men's Pound-for-Pound Top Rank", "Men's Pound-for-Pound", true},
		{"Women's Pound-for-Pound", "Women's Pound-for-Pound", true},
		{"Upcoming Events", "", false},
	}
	for _, tc := range cases {
		got, ok := CanonicalDivision(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("CanonicalDivision(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
