package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fightsync/models"
)

// PostgresStore implements Store against a direct Postgres connection, for
// deployments that bypass the REST gateway. Semantics mirror RESTStore:
// lookups return (nil, nil) when absent and unique violations surface as
// ErrConflict.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

// Events

func (s *PostgresStore) EventByName(ctx context.Context, name string) (*models.Event, error) {
	query := `
		SELECT id, name, date, venue, location, status, source_url
		FROM events WHERE name = $1`

	var e models.Event
	err := s.pool.QueryRow(ctx, query, name).Scan(
		&e.ID, &e.Name, &e.Date, &e.Venue, &e.Location, &e.Status, &e.SourceURL,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *PostgresStore) CreateEvent(ctx context.Context, e *models.Event) error {
	query := `
		INSERT INTO events (name, date, venue, location, status, source_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := s.pool.QueryRow(ctx, query,
		e.Name, e.Date, e.Venue, e.Location, e.Status, e.SourceURL,
	).Scan(&e.ID)
	return mapPgError(err)
}

func (s *PostgresStore) UpdateEventStatus(ctx context.Context, id int64, status models.EventStatus) error {
	_, err := s.pool.Exec(ctx, `UPDATE events SET status = $2 WHERE id = $1`, id, status)
	return err
}

// Fighters

func (s *PostgresStore) FighterByName(ctx context.Context, name string) (*models.Fighter, error) {
	query := `
		SELECT id, name, nickname, weight_class, wins, losses, draws,
			height, reach, stance, ufc_ranking, is_active
		FROM fighters WHERE lower(name) = lower($1)`

	var f models.Fighter
	err := s.pool.QueryRow(ctx, query, name).Scan(
		&f.ID, &f.Name, &f.Nickname, &f.WeightClass, &f.Wins, &f.Losses, &f.Draws,
		&f.Height, &f.Reach, &f.Stance, &f.UFCRanking, &f.IsActive,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *PostgresStore) CreateFighter(ctx context.Context, f *models.Fighter) error {
	query := `
		INSERT INTO fighters (name, nickname, weight_class, wins, losses, draws,
			height, reach, stance, ufc_ranking, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	err := s.pool.QueryRow(ctx, query,
		f.Name, f.Nickname, f.WeightClass, f.Wins, f.Losses, f.Draws,
		f.Height, f.Reach, f.Stance, f.UFCRanking, f.IsActive,
	).Scan(&f.ID)
	return mapPgError(err)
}

func (s *PostgresStore) PatchFighter(ctx context.Context, id int64, patch *models.FighterPatch) error {
	if patch.Empty() {
		return nil
	}
	query := `
		UPDATE fighters SET
			nickname = COALESCE($2, nickname),
			weight_class = COALESCE($3, weight_class),
			wins = COALESCE($4, wins),
			losses = COALESCE($5, losses),
			draws = COALESCE($6, draws),
			height = COALESCE($7, height),
			reach = COALESCE($8, reach),
			stance = COALESCE($9, stance),
			ufc_ranking = COALESCE($10, ufc_ranking)
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query,
		id, patch.Nickname, patch.WeightClass, patch.Wins, patch.Losses, patch.Draws,
		patch.Height, patch.Reach, patch.Stance, patch.UFCRanking,
	)
	return err
}

func (s *PostgresStore) FightersMissingRecord(ctx context.Context, limit int) ([]models.Fighter, error) {
	query := `
		SELECT id, name, nickname, weight_class, wins, losses, draws,
			height, reach, stance, ufc_ranking, is_active
		FROM fighters
		WHERE wins = 0 AND losses = 0 AND draws = 0
		ORDER BY id
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fighters []models.Fighter
	for rows.Next() {
		var f models.Fighter
		if err := rows.Scan(
			&f.ID, &f.Name, &f.Nickname, &f.WeightClass, &f.Wins, &f.Losses, &f.Draws,
			&f.Height, &f.Reach, &f.Stance, &f.UFCRanking, &f.IsActive,
		); err != nil {
			return nil, err
		}
		fighters = append(fighters, f)
	}
	return fighters, rows.Err()
}

// Fights

func (s *PostgresStore) FightByEventAndOrder(ctx context.Context, eventID int64, order int) (*models.Fight, error) {
	query := `
		SELECT id, event_id, weight_class, fighter1_name, fighter2_name,
			winner_name, loser_name, method, method_detail, round, time,
			fight_order, is_main_event, is_co_main_event, status
		FROM fights WHERE event_id = $1 AND fight_order = $2`

	var f models.Fight
	err := s.pool.QueryRow(ctx, query, eventID, order).Scan(
		&f.ID, &f.EventID, &f.WeightClass, &f.Fighter1Name, &f.Fighter2Name,
		&f.WinnerName, &f.LoserName, &f.Method, &f.MethodDetail, &f.Round, &f.Time,
		&f.FightOrder, &f.IsMainEvent, &f.IsCoMainEvent, &f.Status,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *PostgresStore) CreateFight(ctx context.Context, f *models.Fight) error {
	query := `
		INSERT INTO fights (event_id, weight_class, fighter1_name, fighter2_name,
			winner_name, loser_name, method, method_detail, round, time,
			fight_order, is_main_event, is_co_main_event, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	err := s.pool.QueryRow(ctx, query,
		f.EventID, f.WeightClass, f.Fighter1Name, f.Fighter2Name,
		f.WinnerName, f.LoserName, f.Method, f.MethodDetail, f.Round, f.Time,
		f.FightOrder, f.IsMainEvent, f.IsCoMainEvent, f.Status,
	).Scan(&f.ID)
	return mapPgError(err)
}

// Rankings

func (s *PostgresStore) RankingsByDivision(ctx context.Context, division string) ([]models.Ranking, error) {
	query := `
		SELECT id, fighter_id, division, rank_position, rank_type
		FROM rankings WHERE division = $1
		ORDER BY rank_position`

	rows, err := s.pool.Query(ctx, query, division)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rankings []models.Ranking
	for rows.Next() {
		var r models.Ranking
		if err := rows.Scan(&r.ID, &r.FighterID, &r.Division, &r.RankPosition, &r.RankType); err != nil {
			return nil, err
		}
		rankings = append(rankings, r)
	}
	return rankings, rows.Err()
}

func (s *PostgresStore) DeleteDivisionRankings(ctx context.Context, division string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM rankings WHERE division = $1`, division)
	return err
}

func (s *PostgresStore) CreateRanking(ctx context.Context, r *models.Ranking) error {
	query := `
		INSERT INTO rankings (fighter_id, division, rank_position, rank_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := s.pool.QueryRow(ctx, query,
		r.FighterID, r.Division, r.RankPosition, r.RankType,
	).Scan(&r.ID)
	return mapPgError(err)
}
