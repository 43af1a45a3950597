package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fightsync/config"
	"fightsync/httputil"
	"fightsync/models"
	"fightsync/scraper"
	"fightsync/storage"
)

func indexPage(baseURL string, names []string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table>`)
	b.WriteString(`<tr><th>#</th><th>Event</th><th>Date</th><th>Venue</th><th>Location</th><th>Attendance</th></tr>`)
	for i, name := range names {
		fmt.Fprintf(&b,
			`<tr><td>%d</td><td><a href="%s/event/%d">%s</a></td><td>April 13, 2024 (2024-04-13)</td><td>Arena</td><td>Las Vegas, Nevada, U.S.</td><td>100</td></tr>`,
			i+1, baseURL, i+1, name)
	}
	b.WriteString(`</table></body></html>`)
	return b.String()
}

func eventPage(winner, loser string) string {
	return fmt.Sprintf(`<html><body>
<table class="infobox">
<tr><th>Date</th><td>April 13, 2024 (2024-04-13)</td></tr>
<tr><th>Venue</th><td>Arena</td></tr>
</table>
<table>
<tr><td>Lightweight</td><td>%s</td><td>def.</td><td>%s</td><td>KO (punch)</td><td>1</td><td>1:00</td><td></td></tr>
</table>
</body></html>`, winner, loser)
}

func TestRunFullSync(t *testing.T) {
	names := []string{"UFC 101", "UFC 102", "UFC 103", "UFC 104"}

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/index", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexPage(srv.URL, names)))
	})
	mux.HandleFunc("/event/", func(w http.ResponseWriter, r *http.Request) {
		n := strings.TrimPrefix(r.URL.Path, "/event/")
		if n == "3" {
			// One event page is persistently broken.
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, eventPage("Winner "+n, "Loser "+n))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	fetcher := httputil.NewFetcher(5*time.Second, map[string]time.Duration{
		"127.0.0.1": time.Millisecond,
	})
	src := &config.SourceConfig{
		ID:            "wikipedia_events",
		IndexURL:      srv.URL + "/index",
		TableToken:    "UFC",
		MinIndexCells: 6,
		FightColumns:  8,
		DefeatMarker:  "def.",
	}

	store := newFakeStore()
	loader := NewLoader(store, NewResolver())
	svc := NewSyncService(
		scraper.NewDiscoverer(fetcher, src),
		scraper.NewEventExtractor(fetcher, src),
		loader,
		testOpsStore(t),
		2,
		src.ID,
	)

	summary, err := svc.RunFullSync(context.Background(), SyncOptions{})
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if summary.Processed != 4 {
		t.Fatalf("processed = %d, want 4", summary.Processed)
	}
	if summary.Successful != 3 {
		t.Fatalf("successful = %d, want 3", summary.Successful)
	}
	if summary.Failed != 1 {
		t.Fatalf("failed = %d, want 1", summary.Failed)
	}
	if summary.TotalFights != 3 {
		t.Fatalf("total fights = %d, want 3", summary.TotalFights)
	}
	if len(summary.FailedEvents) != 1 {
		t.Fatalf("expected 1 failed event, got %+v", summary.FailedEvents)
	}
	if summary.FailedEvents[0].Name != "UFC 103" {
		t.Fatalf("unexpected failed event %+v", summary.FailedEvents[0])
	}
	if summary.FailedEvents[0].Class != "fetch" {
		t.Fatalf("unexpected failure class %q", summary.FailedEvents[0].Class)
	}

	if len(store.events) != 3 {
		t.Fatalf("expected 3 stored events, got %d", len(store.events))
	}
	if len(store.fights) != 3 {
		t.Fatalf("expected 3 stored fights, got %d", len(store.fights))
	}
}

func TestRunFullSyncOptions(t *testing.T) {
	names := []string{"UFC 101", "UFC 102", "UFC 103"}

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/index", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexPage(srv.URL, names)))
	})
	mux.HandleFunc("/event/", func(w http.ResponseWriter, r *http.Request) {
		n := strings.TrimPrefix(r.URL.Path, "/event/")
		fmt.Fprint(w, eventPage("Winner "+n, "Loser "+n))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	fetcher := httputil.NewFetcher(5*time.Second, map[string]time.Duration{
		"127.0.0.1": time.Millisecond,
	})
	src := &config.SourceConfig{
		ID:            "wikipedia_events",
		IndexURL:      srv.URL + "/index",
		TableToken:    "UFC",
		MinIndexCells: 6,
		FightColumns:  8,
		DefeatMarker:  "def.",
	}

	store := newFakeStore()
	svc := NewSyncService(
		scraper.NewDiscoverer(fetcher, src),
		scraper.NewEventExtractor(fetcher, src),
		NewLoader(store, NewResolver()),
		testOpsStore(t),
		1,
		src.ID,
	)

	summary, err := svc.RunFullSync(context.Background(), SyncOptions{StartFrom: 1, MaxEvents: 1})
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if summary.Processed != 1 || summary.Successful != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(store.events) != 1 || store.events[0].Name != "UFC 102" {
		t.Fatalf("unexpected stored events %+v", store.events)
	}

	if _, err := svc.RunFullSync(context.Background(), SyncOptions{StartFrom: len(names)}); err != ErrNoEvents {
		t.Fatalf("expected ErrNoEvents for offset past the end, got %v", err)
	}
}

// panicStore panics when asked to create one specific event.
type panicStore struct {
	*fakeStore
	name string
}

func (s *panicStore) CreateEvent(ctx context.Context, e *models.Event) error {
	if e.Name == s.name {
		panic("bad event row")
	}
	return s.fakeStore.CreateEvent(ctx, e)
}

func TestRunFullSyncEventPanic(t *testing.T) {
	names := []string{"UFC 101", "UFC 102", "UFC 103"}

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/index", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexPage(srv.URL, names)))
	})
	mux.HandleFunc("/event/", func(w http.ResponseWriter, r *http.Request) {
		n := strings.TrimPrefix(r.URL.Path, "/event/")
		fmt.Fprint(w, eventPage("Winner "+n, "Loser "+n))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	fetcher := httputil.NewFetcher(5*time.Second, map[string]time.Duration{
		"127.0.0.1": time.Millisecond,
	})
	src := &config.SourceConfig{
		ID:            "wikipedia_events",
		IndexURL:      srv.URL + "/index",
		TableToken:    "UFC",
		MinIndexCells: 6,
		FightColumns:  8,
		DefeatMarker:  "def.",
	}

	store := &panicStore{fakeStore: newFakeStore(), name: "UFC 102"}
	svc := NewSyncService(
		scraper.NewDiscoverer(fetcher, src),
		scraper.NewEventExtractor(fetcher, src),
		NewLoader(store, NewResolver()),
		testOpsStore(t),
		1,
		src.ID,
	)

	done := make(chan struct{})
	var summary *models.Summary
	var err error
	go func() {
		defer close(done)
		summary, err = svc.RunFullSync(context.Background(), SyncOptions{})
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("sync did not finish after an event panicked")
	}
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if summary.Processed != 3 || summary.Successful != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(summary.FailedEvents) != 1 || summary.FailedEvents[0].Name != "UFC 102" {
		t.Fatalf("unexpected failed events %+v", summary.FailedEvents)
	}
	if summary.FailedEvents[0].Class != "panic" {
		t.Fatalf("unexpected failure class %q", summary.FailedEvents[0].Class)
	}
	if len(store.events) != 2 {
		t.Fatalf("expected 2 stored events, got %d", len(store.events))
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&httputil.FetchError{URL: "http://x", Status: 500}, "fetch"},
		{storage.ErrMalformed, "malformed"},
		{storage.ErrNotFound, "store"},
		{context.Canceled, "cancelled"},
		{context.DeadlineExceeded, "cancelled"},
		{fmt.Errorf("%w: boom", errEventPanic), "panic"},
		{fmt.Errorf("no fight table"), "parse"},
	}
	for _, tc := range cases {
		if got := classify(tc.err); got != tc.want {
			t.Errorf("classify(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestRunFullSyncNoEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>empty</p></body></html>"))
	}))
	defer srv.Close()

	fetcher := httputil.NewFetcher(5*time.Second, map[string]time.Duration{
		"127.0.0.1": time.Millisecond,
	})
	src := &config.SourceConfig{
		ID:            "wikipedia_events",
		IndexURL:      srv.URL,
		TableToken:    "UFC",
		MinIndexCells: 6,
		FightColumns:  8,
		DefeatMarker:  "def.",
	}

	svc := NewSyncService(
		scraper.NewDiscoverer(fetcher, src),
		scraper.NewEventExtractor(fetcher, src),
		NewLoader(newFakeStore(), NewResolver()),
		testOpsStore(t),
		2,
		src.ID,
	)

	if _, err := svc.RunFullSync(context.Background(), SyncOptions{}); err == nil {
		t.Fatal("expected error when discovery finds nothing")
	}
}
