package models

// Fighter is referenced by fights and rankings. Name is the business key,
// matched case-insensitively but stored case-preserving.
type Fighter struct {
	ID          int64   `json:"id,omitempty" db:"id"`
	Name        string  `json:"name" db:"name"`
	Nickname    *string `json:"nickname" db:"nickname"`
	WeightClass *string `json:"weight_class" db:"weight_class"`
	Wins        int     `json:"wins" db:"wins"`
	Losses      int     `json:"losses" db:"losses"`
	Draws       int     `json:"draws" db:"draws"`
	Height      *string `json:"height" db:"height"`
	Reach       *string `json:"reach" db:"reach"`
	Stance      *string `json:"stance" db:"stance"`
	UFCRanking  *int    `json:"ufc_ranking" db:"ufc_ranking"`
	IsActive    bool    `json:"is_active" db:"is_active"`
}

// Record is a fighter's wins-losses-draws triple.
type Record struct {
	Wins   int
	Losses int
	Draws  int
}

// FighterPatch carries partial updates from a more authoritative source
// (event page, rankings page, athlete profile). Nil fields are left alone.
type FighterPatch struct {
	Nickname    *string `json:"nickname,omitempty"`
	WeightClass *string `json:"weight_class,omitempty"`
	Wins        *int    `json:"wins,omitempty"`
	Losses      *int    `json:"losses,omitempty"`
	Draws       *int    `json:"draws,omitempty"`
	Height      *string `json:"height,omitempty"`
	Reach       *string `json:"reach,omitempty"`
	Stance      *string `json:"stance,omitempty"`
	UFCRanking  *int    `json:"ufc_ranking,omitempty"`
}

// Empty reports whether the patch would change nothing.
func (p *FighterPatch) Empty() bool {
	if p == nil {
		return true
	}
	return p.Nickname == nil && p.WeightClass == nil &&
		p.Wins == nil && p.Losses == nil && p.Draws == nil &&
		p.Height == nil && p.Reach == nil && p.Stance == nil &&
		p.UFCRanking == nil
}
