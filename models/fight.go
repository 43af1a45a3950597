package models

// FightRow is one parsed row of a fight table, before loading.
// FightOrder is assigned globally across all fight tables of the page in
// document order, 1 = main event.
type FightRow struct {
	WeightClass  string
	WinnerName   string
	LoserName    string
	Method       string
	MethodDetail *string
	Round        *int
	Time         *string
	FightOrder   int
}

// Fight is a persisted fight. The business key is (event_id, fight_order).
// IsMainEvent and IsCoMainEvent are derived from FightOrder, never set
// independently.
type Fight struct {
	ID            int64   `json:"id,omitempty" db:"id"`
	EventID       int64   `json:"event_id" db:"event_id"`
	WeightClass   string  `json:"weight_class" db:"weight_class"`
	Fighter1Name  string  `json:"fighter1_name" db:"fighter1_name"`
	Fighter2Name  string  `json:"fighter2_name" db:"fighter2_name"`
	WinnerName    string  `json:"winner_name" db:"winner_name"`
	LoserName     string  `json:"loser_name" db:"loser_name"`
	Method        string  `json:"method" db:"method"`
	MethodDetail  *string `json:"method_detail" db:"method_detail"`
	Round         *int    `json:"round" db:"round"`
	Time          *string `json:"time" db:"time"`
	FightOrder    int     `json:"fight_order" db:"fight_order"`
	IsMainEvent   bool    `json:"is_main_event" db:"is_main_event"`
	IsCoMainEvent bool    `json:"is_co_main_event" db:"is_co_main_event"`
	Status        string  `json:"status" db:"status"`
}
