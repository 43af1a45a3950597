package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"fightsync/models"
)

var (
	multiSpaceRe  = regexp.MustCompile(`\s+`)
	bracketRefRe  = regexp.MustCompile(`\[[^\]]*\]`)
	leadParenRe   = regexp.MustCompile(`^\([^)]*\)\s*`)
	trailParenRe  = regexp.MustCompile(`\s*\([^)]*\)$`)
	parenISORe    = regexp.MustCompile(`\((\d{4}-\d{2}-\d{2})\)`)
	parenDetailRe = regexp.MustCompile(`\(([^)]*)\)`)
	koWordRe      = regexp.MustCompile(`\bko\b`)
	dqWordRe      = regexp.MustCompile(`\bdq\b`)
	ncWordRe      = regexp.MustCompile(`\bnc\b`)
	recordRe      = regexp.MustCompile(`^(\d+)-(\d+)(?:-(\d+))?$`)
	fightTimeRe   = regexp.MustCompile(`^\d+:\d+$`)
)

// dateFormats are tried in order. A parenthesized ISO date inside the
// string always wins.
var dateFormats = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2006-01-02",
	"01/02/2006",
}

// NormalizeName cleans a fighter name cell: entity and reference debris
// removed, whitespace collapsed, leading/trailing qualifiers like "(c)"
// and stray "def." fragments stripped. Casing and diacritics are kept.
func NormalizeName(s string) string {
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, " ", " ")
	s = bracketRefRe.ReplaceAllString(s, "")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	for {
		trimmed := leadParenRe.ReplaceAllString(s, "")
		trimmed = trailParenRe.ReplaceAllString(trimmed, "")
		trimmed = strings.TrimSpace(trimmed)

		lower := strings.ToLower(trimmed)
		for _, frag := range []string{"def.", "defeated"} {
			if strings.HasPrefix(lower, frag) {
				trimmed = strings.TrimSpace(trimmed[len(frag):])
				lower = strings.ToLower(trimmed)
			}
			if strings.HasSuffix(lower, frag) {
				trimmed = strings.TrimSpace(trimmed[:len(trimmed)-len(frag)])
				lower = strings.ToLower(trimmed)
			}
		}

		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

// NormalizeMethod maps a raw method cell to its canonical label, with any
// parenthesized detail returned separately. Idempotent: feeding a
// canonical label back through returns it unchanged.
func NormalizeMethod(raw string) (string, *string) {
	var detail *string
	if m := parenDetailRe.FindStringSubmatch(raw); m != nil && strings.TrimSpace(m[1]) != "" {
		d := strings.TrimSpace(m[1])
		detail = &d
	}

	stripped := strings.TrimSpace(parenDetailRe.ReplaceAllString(raw, ""))
	lower := strings.ToLower(raw)

	switch {
	case strings.Contains(lower, "decision"):
		for _, mod := range []string{"unanimous", "split", "majority"} {
			if strings.Contains(lower, mod) {
				label := "Decision (" + strings.ToUpper(mod[:1]) + mod[1:] + ")"
				// The modifier is part of the label, not detail.
				if detail != nil && strings.EqualFold(*detail, mod) {
					detail = nil
				}
				return label, detail
			}
		}
		return "Decision", detail
	case koWordRe.MatchString(lower):
		return "KO", detail
	case strings.Contains(lower, "tko"):
		return "TKO", detail
	case strings.Contains(lower, "submission"):
		return "Submission", detail
	case dqWordRe.MatchString(lower):
		return "DQ", detail
	case ncWordRe.MatchString(lower) || strings.Contains(lower, "no contest"):
		return "No Contest", detail
	default:
		return stripped, detail
	}
}

// ParseDate tries the accepted date formats and returns a UTC midnight
// instant, or nil when nothing matches. A parenthesized ISO date (the
// Wikipedia "June 28, 2025 (2025-06-28)" form) takes precedence.
func ParseDate(s string) *time.Time {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if m := parenISORe.FindStringSubmatch(s); m != nil {
		if t, err := time.ParseInLocation("2006-01-02", m[1], time.UTC); err == nil {
			return &t
		}
	}

	cleaned := bracketRefRe.ReplaceAllString(s, "")
	cleaned = parenDetailRe.ReplaceAllString(cleaned, "")
	cleaned = multiSpaceRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	for _, layout := range dateFormats {
		if t, err := time.ParseInLocation(layout, cleaned, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}

// ParseRecord parses "W-L-D" or "W-L". Any failure yields the zero record.
func ParseRecord(s string) models.Record {
	m := recordRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return models.Record{}
	}
	wins, _ := strconv.Atoi(m[1])
	losses, _ := strconv.Atoi(m[2])
	draws := 0
	if m[3] != "" {
		draws, _ = strconv.Atoi(m[3])
	}
	return models.Record{Wins: wins, Losses: losses, Draws: draws}
}

// ParseRound returns the round number when the cell is a bare integer,
// else nil ("N/A" and friends never become zero).
func ParseRound(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// ParseFightTime returns the MM:SS time string or nil.
func ParseFightTime(s string) *string {
	s = strings.TrimSpace(s)
	if !fightTimeRe.MatchString(s) {
		return nil
	}
	return &s
}
