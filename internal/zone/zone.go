// Package zone computes favorable-zone (有利区間) windows over play history.
package zone

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/verte-zerg/zonecalc/internal/model"
)

// Bonus game counts per mode.
const (
	GoldBB  = 69
	GoldRB  = 29
	BlackBB = 59
	BlackRB = 24
)

// Recalculate returns a copy of records with FavorableZoneStart,
// FavorableZoneEnd and SegmentNumber filled in. The input is not modified.
//
// Records are folded in order. A separator resets the running total and the
// segment counter for the records after it; the separator itself gets zero
// values and does not consume a segment number.
func Recalculate(records []model.Record, mode model.Mode) []model.Record {
	out := make([]model.Record, len(records))
	acc := 0
	segment := 0
	for i, rec := range records {
		if rec.IsSeparator {
			acc = 0
			segment = 0
			rec.FavorableZoneStart = 0
			rec.FavorableZoneEnd = 0
			rec.SegmentNumber = 0
			out[i] = rec
			continue
		}
		segment++
		start := acc + ParseGameCount(rec.GameCount)
		end := start + Bonus(mode, rec.BonusType)
		acc = end
		rec.FavorableZoneStart = start
		rec.FavorableZoneEnd = end
		rec.SegmentNumber = segment
		out[i] = rec
	}
	return out
}

// Bonus returns the fixed game-count bonus of an outcome in the given mode.
func Bonus(mode model.Mode, bonus model.BonusType) int {
	switch bonus {
	case model.BonusBB:
		if mode == model.ModeBlack {
			return BlackBB
		}
		return GoldBB
	case model.BonusRB:
		if mode == model.ModeBlack {
			return BlackRB
		}
		return GoldRB
	case model.BonusCurrent, model.BonusEmpty:
		return 0
	default:
		return 0
	}
}

// MaxGameCount is the largest game count taken into account. Larger values
// count as 0 so the accumulator cannot overflow.
const MaxGameCount = math.MaxInt32

// ParseGameCount parses a free-text game count. Full-width digits are
// accepted. Blank, non-integer, negative and out of range input yields 0.
// Only plain integers count: "-5" and "3.0" are both 0.
func ParseGameCount(s string) int {
	s = strings.TrimSpace(width.Narrow.String(s))
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > MaxGameCount {
		return 0
	}
	return n
}

// Summary counts recorded outcomes.
type Summary struct {
	Total   int
	BB      int
	RB      int
	Current int
}

// Summarize counts records that are not separators and have a game count.
func Summarize(records []model.Record) Summary {
	var s Summary
	for _, rec := range records {
		if rec.IsSeparator || strings.TrimSpace(rec.GameCount) == "" {
			continue
		}
		s.Total++
		switch rec.BonusType {
		case model.BonusBB:
			s.BB++
		case model.BonusRB:
			s.RB++
		case model.BonusCurrent:
			s.Current++
		}
	}
	return s
}
