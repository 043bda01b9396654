// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// BonusType classifies the outcome of a play record.
type BonusType int

// Bonus types. BonusEmpty is the zero value so new records start empty.
const (
	BonusEmpty BonusType = iota
	BonusBB
	BonusRB
	BonusCurrent
)

const (
	currentLabel   = "現在"
	separatorLabel = "区切"
)

// String returns the canonical code used in exports and the database.
func (b BonusType) String() string {
	switch b {
	case BonusBB:
		return "BB"
	case BonusRB:
		return "RB"
	case BonusCurrent:
		return "CURRENT"
	default:
		return ""
	}
}

// Label returns the display label.
func (b BonusType) Label() string {
	if b == BonusCurrent {
		return currentLabel
	}
	return b.String()
}

// ParseBonusType converts a code or label to a BonusType. The legacy
// separator label reports separator=true. Unknown input is BonusEmpty.
func ParseBonusType(s string) (bonus BonusType, separator bool) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "BB":
		return BonusBB, false
	case "RB":
		return BonusRB, false
	case "CURRENT", currentLabel:
		return BonusCurrent, false
	case "SEPARATOR", separatorLabel:
		return BonusEmpty, true
	default:
		return BonusEmpty, false
	}
}

// Mode selects the bonus constants of a machine variant.
type Mode int

// Machine modes.
const (
	ModeGold Mode = iota
	ModeBlack
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeBlack {
		return "BLACK"
	}
	return "GOLD"
}

// ParseMode parses GOLD or BLACK, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GOLD":
		return ModeGold, nil
	case "BLACK":
		return ModeBlack, nil
	default:
		return ModeGold, fmt.Errorf("unknown mode %q (expected GOLD or BLACK)", s)
	}
}

// Machine identifies one of the two tracked sequences.
type Machine int

// Tracked machines.
const (
	Machine1 Machine = 1
	Machine2 Machine = 2
)

// ParseMachine validates a machine number.
func ParseMachine(n int) (Machine, error) {
	switch Machine(n) {
	case Machine1, Machine2:
		return Machine(n), nil
	default:
		return 0, fmt.Errorf("machine must be 1 or 2, got %d", n)
	}
}

// Other returns the opposite machine.
func (m Machine) Other() Machine {
	if m == Machine2 {
		return Machine1
	}
	return Machine2
}

// Record is one row of play history.
type Record struct {
	ID          string
	GameCount   string
	BonusType   BonusType
	IsSeparator bool

	// Derived by the engine; overwritten on every recalculation.
	FavorableZoneStart int
	FavorableZoneEnd   int
	SegmentNumber      int
}

// RawRecord is a single entry returned by image extraction.
type RawRecord struct {
	Game int
	Type BonusType
}

// Config defines tracker settings resolved from flags and config file.
type Config struct {
	Mode    Mode
	Machine Machine
}

// ExtractConfig defines image extraction settings.
type ExtractConfig struct {
	BaseURL  string
	APIKey   string
	User     string
	Timeout  time.Duration
	MaxUses  int
	Window   time.Duration
	Lenient  bool
	LogLevel string
}
