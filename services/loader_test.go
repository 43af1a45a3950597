package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"fightsync/models"
	"fightsync/storage"
)

// fakeStore is an in-memory Store with the REST backend's contract:
// lookups return (nil, nil) on no match and creates don't report ids.
type fakeStore struct {
	mu       sync.Mutex
	events   []models.Event
	fighters []models.Fighter
	fights   []models.Fight
	rankings []models.Ranking
	nextID   int64

	eventCreates   int
	fighterCreates int
	fightCreates   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1}
}

func (s *fakeStore) id() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *fakeStore) EventByName(_ context.Context, name string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if strings.EqualFold(s.events[i].Name, name) {
			e := s.events[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CreateEvent(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventCreates++
	stored := *e
	stored.ID = s.id()
	s.events = append(s.events, stored)
	return nil
}

func (s *fakeStore) UpdateEventStatus(_ context.Context, id int64, status models.EventStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			s.events[i].Status = status
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *fakeStore) FighterByName(_ context.Context, name string) (*models.Fighter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.fighters {
		if strings.EqualFold(s.fighters[i].Name, name) {
			f := s.fighters[i]
			return &f, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CreateFighter(_ context.Context, f *models.Fighter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fighterCreates++
	stored := *f
	stored.ID = s.id()
	s.fighters = append(s.fighters, stored)
	return nil
}

func (s *fakeStore) PatchFighter(_ context.Context, id int64, patch *models.FighterPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.fighters {
		if s.fighters[i].ID != id {
			continue
		}
		if patch.WeightClass != nil {
			s.fighters[i].WeightClass = patch.WeightClass
		}
		if patch.Nickname != nil {
			s.fighters[i].Nickname = patch.Nickname
		}
		if patch.Wins != nil {
			s.fighters[i].Wins = *patch.Wins
		}
		if patch.Losses != nil {
			s.fighters[i].Losses = *patch.Losses
		}
		if patch.Draws != nil {
			s.fighters[i].Draws = *patch.Draws
		}
		if patch.UFCRanking != nil {
			s.fighters[i].UFCRanking = patch.UFCRanking
		}
		return nil
	}
	return storage.ErrNotFound
}

func (s *fakeStore) FightersMissingRecord(_ context.Context, limit int) ([]models.Fighter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Fighter
	for _, f := range s.fighters {
		if f.Wins == 0 && f.Losses == 0 && f.Draws == 0 {
			out = append(out, f)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *fakeStore) FightByEventAndOrder(_ context.Context, eventID int64, order int) (*models.Fight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.fights {
		if s.fights[i].EventID == eventID && s.fights[i].FightOrder == order {
			f := s.fights[i]
			return &f, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CreateFight(_ context.Context, f *models.Fight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fightCreates++
	for i := range s.fights {
		if s.fights[i].EventID == f.EventID && s.fights[i].FightOrder == f.FightOrder {
			return storage.ErrConflict
		}
	}
	stored := *f
	stored.ID = s.id()
	s.fights = append(s.fights, stored)
	return nil
}

func (s *fakeStore) RankingsByDivision(_ context.Context, division string) ([]models.Ranking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Ranking
	for _, r := range s.rankings {
		if r.Division == division {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) DeleteDivisionRankings(_ context.Context, division string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rankings[:0]
	for _, r := range s.rankings {
		if r.Division != division {
			kept = append(kept, r)
		}
	}
	s.rankings = kept
	return nil
}

func (s *fakeStore) CreateRanking(_ context.Context, r *models.Ranking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *r
	stored.ID = s.id()
	s.rankings = append(s.rankings, stored)
	return nil
}

func (s *fakeStore) Close() {}

func testEventRecord() *models.EventRecord {
	date := time.Date(2024, 4, 13, 0, 0, 0, 0, time.UTC)
	venue := "T-Mobile Arena"
	detail := "punches"
	round := 1
	fightTime := "3:14"
	return &models.EventRecord{
		Meta: models.EventMeta{
			Name:      "UFC 300",
			Date:      &date,
			Venue:     &venue,
			SourceURL: "https://en.wikipedia.org/wiki/UFC_300",
		},
		Status: models.EventStatusCompleted,
		Fights: []models.FightRow{
			{
				WeightClass:  "Light Heavyweight",
				WinnerName:   "Alex Pereira",
				LoserName:    "Jamahal Hill",
				Method:       "KO",
				MethodDetail: &detail,
				Round:        &round,
				Time:         &fightTime,
				FightOrder:   1,
			},
			{
				WeightClass: "Women's Strawweight",
				WinnerName:  "Zhang Weili",
				LoserName:   "Yan Xiaonan",
				Method:      "Decision (Unanimous)",
				FightOrder:  2,
			},
		},
	}
}

func TestLoadEvent(t *testing.T) {
	store := newFakeStore()
	loader := NewLoader(store, NewResolver())
	ctx := context.Background()

	n, err := loader.LoadEvent(ctx, testEventRecord())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 fights loaded, got %d", n)
	}
	if len(store.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(store.events))
	}
	if len(store.fighters) != 4 {
		t.Fatalf("expected 4 fighters, got %d", len(store.fighters))
	}
	if len(store.fights) != 2 {
		t.Fatalf("expected 2 fights, got %d", len(store.fights))
	}

	main := store.fights[0]
	if !main.IsMainEvent || main.IsCoMainEvent {
		t.Fatalf("fight order 1 flags wrong: %+v", main)
	}
	if store.fights[1].IsMainEvent || !store.fights[1].IsCoMainEvent {
		t.Fatalf("fight order 2 flags wrong: %+v", store.fights[1])
	}
	if main.WinnerName != "Alex Pereira" || main.Fighter1Name != "Alex Pereira" {
		t.Fatalf("unexpected main event row %+v", main)
	}
}

func TestLoadEventIdempotent(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	// Separate loaders so the second pass cannot lean on the resolver
	// cache and has to go through the store again.
	if _, err := NewLoader(store, NewResolver()).LoadEvent(ctx, testEventRecord()); err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	if _, err := NewLoader(store, NewResolver()).LoadEvent(ctx, testEventRecord()); err != nil {
		t.Fatalf("second load failed: %v", err)
	}

	if len(store.events) != 1 {
		t.Fatalf("expected 1 event after reload, got %d", len(store.events))
	}
	if len(store.fighters) != 4 {
		t.Fatalf("expected 4 fighters after reload, got %d", len(store.fighters))
	}
	if len(store.fights) != 2 {
		t.Fatalf("expected 2 fights after reload, got %d", len(store.fights))
	}
	if store.eventCreates != 1 || store.fighterCreates != 4 || store.fightCreates != 2 {
		t.Fatalf("reload issued creates: events=%d fighters=%d fights=%d",
			store.eventCreates, store.fighterCreates, store.fightCreates)
	}
}

func TestUpsertFighterCaseInsensitive(t *testing.T) {
	store := newFakeStore()
	loader := NewLoader(store, NewResolver())
	ctx := context.Background()

	id1, err := loader.UpsertFighter(ctx, "Alex Pereira", nil)
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	id2, err := loader.UpsertFighter(ctx, "alex pereira", nil)
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("case variants created distinct fighters: %d vs %d", id1, id2)
	}
	if len(store.fighters) != 1 {
		t.Fatalf("expected 1 fighter, got %d", len(store.fighters))
	}
	if store.fighters[0].Name != "Alex Pereira" {
		t.Fatalf("stored name lost its casing: %q", store.fighters[0].Name)
	}
}

func TestReplaceDivisionRankings(t *testing.T) {
	store := newFakeStore()
	loader := NewLoader(store, NewResolver())
	ctx := context.Background()

	first := []models.RankEntry{
		{FighterName: "Alex Pereira", Division: "Light Heavyweight", RankPosition: 0, RankType: models.RankTypeChampion},
		{FighterName: "Jamahal Hill", Division: "Light Heavyweight", RankPosition: 1, RankType: models.RankTypeContender},
	}
	if err := loader.ReplaceDivisionRankings(ctx, "Light Heavyweight", first); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	other := []models.RankEntry{
		{FighterName: "Islam Makhachev", Division: "Lightweight", RankPosition: 0, RankType: models.RankTypeChampion},
	}
	if err := loader.ReplaceDivisionRankings(ctx, "Lightweight", other); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	second := []models.RankEntry{
		{FighterName: "Alex Pereira", Division: "Light Heavyweight", RankPosition: 0, RankType: models.RankTypeChampion},
		{FighterName: "Jiri Prochazka", Division: "Light Heavyweight", RankPosition: 1, RankType: models.RankTypeContender},
	}
	if err := loader.ReplaceDivisionRankings(ctx, "Light Heavyweight", second); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	lhw, err := store.RankingsByDivision(ctx, "Light Heavyweight")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(lhw) != 2 {
		t.Fatalf("expected 2 light heavyweight rows, got %d", len(lhw))
	}

	// The untouched division survives the replace.
	lw, err := store.RankingsByDivision(ctx, "Lightweight")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(lw) != 1 {
		t.Fatalf("expected 1 lightweight row, got %d", len(lw))
	}

	// Hill dropped out, Prochazka took the slot.
	names := map[int64]string{}
	for _, f := range store.fighters {
		names[f.ID] = f.Name
	}
	got := map[string]bool{}
	for _, r := range lhw {
		got[names[r.FighterID]] = true
	}
	if !got["Alex Pereira"] || !got["Jiri Prochazka"] || got["Jamahal Hill"] {
		t.Fatalf("unexpected division membership: %v", got)
	}
}
