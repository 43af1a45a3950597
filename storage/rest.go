package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"fightsync/models"
)

// RESTStore talks to a PostgREST-style backend: one CRUD endpoint per
// table, filters as ?{column}=eq.{value}, POST returning 201 with an empty
// body. Authorization is a static bearer token in the apikey and
// Authorization headers.
type RESTStore struct {
	baseURL string
	key     string
	client  *http.Client
}

func NewRESTStore(baseURL, key string, timeout time.Duration) *RESTStore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RESTStore{
		baseURL: baseURL,
		key:     key,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *RESTStore) Close() {}

// filter is one ?{column}={op}.{value} pair.
type filter struct {
	column string
	op     string
	value  string
}

func eq(column, value string) filter { return filter{column: column, op: "eq", value: value} }

// ilike without wildcards gives the case-insensitive exact match the
// Postgres driver gets from lower(name).
func ilike(column, value string) filter { return filter{column: column, op: "ilike", value: value} }

func (s *RESTStore) endpoint(table string, filters []filter, limit int) string {
	q := url.Values{}
	for _, f := range filters {
		q.Set(f.column, f.op+"."+f.value)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u := s.baseURL + "/rest/v1/" + table
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

func (s *RESTStore) do(ctx context.Context, method, rawURL string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal body: %v", ErrMalformed, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store %s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode < 300:
		return data, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return nil, ErrConflict
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("store %s %s: status %d: %s", method, rawURL, resp.StatusCode, data)
	default:
		return nil, fmt.Errorf("%w: %s %s: status %d: %s", ErrMalformed, method, rawURL, resp.StatusCode, data)
	}
}

// getOne decodes the first row of a filtered GET into out. Returns
// (false, nil) when the result set is empty.
func (s *RESTStore) getOne(ctx context.Context, table string, filters []filter, out any) (bool, error) {
	data, err := s.do(ctx, http.MethodGet, s.endpoint(table, filters, 1), nil)
	if err != nil {
		return false, err
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return false, fmt.Errorf("%w: decode %s rows: %v", ErrMalformed, table, err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(rows[0], out); err != nil {
		return false, fmt.Errorf("%w: decode %s row: %v", ErrMalformed, table, err)
	}
	return true, nil
}

func (s *RESTStore) insert(ctx context.Context, table string, row any) error {
	_, err := s.do(ctx, http.MethodPost, s.endpoint(table, nil, 0), row)
	return err
}

func (s *RESTStore) update(ctx context.Context, table string, filters []filter, patch any) error {
	_, err := s.do(ctx, http.MethodPatch, s.endpoint(table, filters, 0), patch)
	return err
}

func (s *RESTStore) delete(ctx context.Context, table string, filters []filter) error {
	_, err := s.do(ctx, http.MethodDelete, s.endpoint(table, filters, 0), nil)
	return err
}

// Events

func (s *RESTStore) EventByName(ctx context.Context, name string) (*models.Event, error) {
	var e models.Event
	found, err := s.getOne(ctx, "events", []filter{eq("name", name)}, &e)
	if err != nil || !found {
		return nil, err
	}
	return &e, nil
}

func (s *RESTStore) CreateEvent(ctx context.Context, e *models.Event) error {
	return s.insert(ctx, "events", e)
}

func (s *RESTStore) UpdateEventStatus(ctx context.Context, id int64, status models.EventStatus) error {
	body := map[string]models.EventStatus{"status": status}
	return s.update(ctx, "events", []filter{eq("id", strconv.FormatInt(id, 10))}, body)
}

// Fighters

func (s *RESTStore) FighterByName(ctx context.Context, name string) (*models.Fighter, error) {
	var f models.Fighter
	found, err := s.getOne(ctx, "fighters", []filter{ilike("name", name)}, &f)
	if err != nil || !found {
		return nil, err
	}
	return &f, nil
}

func (s *RESTStore) CreateFighter(ctx context.Context, f *models.Fighter) error {
	return s.insert(ctx, "fighters", f)
}

func (s *RESTStore) PatchFighter(ctx context.Context, id int64, patch *models.FighterPatch) error {
	if patch.Empty() {
		return nil
	}
	return s.update(ctx, "fighters", []filter{eq("id", strconv.FormatInt(id, 10))}, patch)
}

func (s *RESTStore) FightersMissingRecord(ctx context.Context, limit int) ([]models.Fighter, error) {
	filters := []filter{eq("wins", "0"), eq("losses", "0"), eq("draws", "0")}
	data, err := s.do(ctx, http.MethodGet, s.endpoint("fighters", filters, limit), nil)
	if err != nil {
		return nil, err
	}
	var fighters []models.Fighter
	if err := json.Unmarshal(data, &fighters); err != nil {
		return nil, fmt.Errorf("%w: decode fighters: %v", ErrMalformed, err)
	}
	return fighters, nil
}

// Fights

func (s *RESTStore) FightByEventAndOrder(ctx context.Context, eventID int64, order int) (*models.Fight, error) {
	filters := []filter{
		eq("event_id", strconv.FormatInt(eventID, 10)),
		eq("fight_order", strconv.Itoa(order)),
	}
	var f models.Fight
	found, err := s.getOne(ctx, "fights", filters, &f)
	if err != nil || !found {
		return nil, err
	}
	return &f, nil
}

func (s *RESTStore) CreateFight(ctx context.Context, f *models.Fight) error {
	return s.insert(ctx, "fights", f)
}

// Rankings

func (s *RESTStore) RankingsByDivision(ctx context.Context, division string) ([]models.Ranking, error) {
	data, err := s.do(ctx, http.MethodGet, s.endpoint("rankings", []filter{eq("division", division)}, 0), nil)
	if err != nil {
		return nil, err
	}
	var rankings []models.Ranking
	if err := json.Unmarshal(data, &rankings); err != nil {
		return nil, fmt.Errorf("%w: decode rankings: %v", ErrMalformed, err)
	}
	return rankings, nil
}

func (s *RESTStore) DeleteDivisionRankings(ctx context.Context, division string) error {
	return s.delete(ctx, "rankings", []filter{eq("division", division)})
}

func (s *RESTStore) CreateRanking(ctx context.Context, r *models.Ranking) error {
	return s.insert(ctx, "rankings", r)
}
