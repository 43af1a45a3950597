package models

type RankType string

const (
	RankTypeChampion  RankType = "champion"
	RankTypeContender RankType = "contender"
	RankTypeP4P       RankType = "p4p"
)

// Divisions recognized on the rankings page, canonical spellings.
var Divisions = []string{
	"Heavyweight",
	"Light Heavyweight",
	"Middleweight",
	"Welterweight",
	"Lightweight",
	"Featherweight",
	"Bantamweight",
	"Flyweight",
	"Women's Strawweight",
	"Women's Flyweight",
	"Women's Bantamweight",
	"Women's Featherweight",
	"Men's Pound-for-Pound",
	"Women's Pound-for-Pound",
}

// RankEntry is one extracted rankings-page entry, pre-load (fighter not yet
// resolved to a store id). RankPosition 0 is the champion.
type RankEntry struct {
	FighterName  string
	Division     string
	RankPosition int
	RankType     RankType
}

// Ranking is a persisted rankings row. (division, rank_position, rank_type)
// is unique; the full division set is replaced atomically per refresh.
type Ranking struct {
	ID           int64    `json:"id,omitempty" db:"id"`
	FighterID    int64    `json:"fighter_id" db:"fighter_id"`
	Division     string   `json:"division" db:"division"`
	RankPosition int      `json:"rank_position" db:"rank_position"`
	RankType     RankType `json:"rank_type" db:"rank_type"`
}

// DivisionRanking groups the extracted entries of one division.
type DivisionRanking struct {
	Division string
	Entries  []RankEntry
}
