package scraper

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"fightsync/config"
	"fightsync/models"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return data
}

func testSourceConfig() *config.SourceConfig {
	return &config.SourceConfig{
		ID:            "wikipedia_events",
		IndexURL:      "https://en.wikipedia.org/wiki/List_of_UFC_events",
		TableToken:    "UFC",
		MinIndexCells: 6,
		FightColumns:  8,
		DefeatMarker:  "def.",
	}
}

func TestParseIndex(t *testing.T) {
	d := NewDiscoverer(nil, testSourceConfig())
	data := loadFixture(t, "events_index.html")

	stubs, err := d.parseIndex(data, "https://en.wikipedia.org/wiki/List_of_UFC_events")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := []models.EventStub{
		{
			Name:      "UFC 300",
			ListDate:  utcDate(2024, 4, 13),
			Venue:     "T-Mobile Arena",
			Location:  "Las Vegas, Nevada, U.S.",
			SourceURL: "https://en.wikipedia.org/wiki/UFC_300",
		},
		{
			Name:      "UFC Fight Night: Allen vs. Curtis 2",
			ListDate:  utcDate(2024, 4, 6),
			Venue:     "UFC Apex",
			Location:  "Las Vegas, Nevada, U.S.",
			SourceURL: "https://en.wikipedia.org/wiki/UFC_Fight_Night:_Allen_vs._Curtis_2",
		},
		{
			Name:      "UFC 298",
			ListDate:  utcDate(2024, 2, 17),
			Venue:     "Honda Center",
			Location:  "Anaheim, California, U.S.",
			SourceURL: "https://en.wikipedia.org/wiki/UFC_298",
		},
	}
	if diff := cmp.Diff(want, stubs); diff != "" {
		t.Fatalf("stubs mismatch (-want +got):\n%s", diff)
	}
}

func utcDate(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestParseIndexPicksBiggestTable(t *testing.T) {
	d := NewDiscoverer(nil, testSourceConfig())
	data := loadFixture(t, "events_index.html")

	stubs, err := d.parseIndex(data, "https://en.wikipedia.org/wiki/List_of_UFC_events")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	// The scheduled-events table mentions UFC 317; the past-events table
	// must win, so 317 never shows up.
	for _, stub := range stubs {
		if stub.Name == "UFC 317" {
			t.Fatalf("stub from scheduled-events table leaked through: %+v", stub)
		}
	}
}

func TestParseIndexNoEventsTable(t *testing.T) {
	d := NewDiscoverer(nil, testSourceConfig())
	_, err := d.parseIndex([]byte("<html><body><p>nothing here</p></body></html>"), "https://example.org")
	if err == nil {
		t.Fatal("expected error for page without events table")
	}
}
