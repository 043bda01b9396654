// Package tracker binds the record store to the recalculation engine.
//
// Each mutation loads a machine's sequence, applies a pure edit, persists the
// result and returns it freshly recalculated.
package tracker

import (
	"context"
	"fmt"

	"github.com/verte-zerg/zonecalc/internal/model"
	"github.com/verte-zerg/zonecalc/internal/sequence"
	"github.com/verte-zerg/zonecalc/internal/store"
	"github.com/verte-zerg/zonecalc/internal/zone"
)

// Backend is the persistence needed by Tracker.
type Backend interface {
	GetSequence(ctx context.Context, machine model.Machine) ([]model.Record, error)
	SetSequence(ctx context.Context, machine model.Machine, records []model.Record) error
	HasSequence(ctx context.Context, machine model.Machine) (bool, error)
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

var _ Backend = (*store.Store)(nil)

// Tracker manages the two machine sequences and the active mode.
type Tracker struct {
	backend Backend
	mode    model.Mode
}

// New returns a Tracker. The mode is read from the backend when stored,
// otherwise fallback is used.
func New(ctx context.Context, backend Backend, fallback model.Mode) (*Tracker, error) {
	t := &Tracker{backend: backend, mode: fallback}
	value, ok, err := backend.GetSetting(ctx, store.SettingMode)
	if err != nil {
		return nil, fmt.Errorf("failed to load mode: %w", err)
	}
	if ok {
		if mode, err := model.ParseMode(value); err == nil {
			t.mode = mode
		}
	}
	return t, nil
}

// Mode returns the active mode.
func (t *Tracker) Mode() model.Mode {
	return t.mode
}

// SetMode changes and persists the active mode.
func (t *Tracker) SetMode(ctx context.Context, mode model.Mode) error {
	if err := t.backend.SetSetting(ctx, store.SettingMode, mode.String()); err != nil {
		return fmt.Errorf("failed to save mode: %w", err)
	}
	t.mode = mode
	return nil
}

// View returns the recalculated sequence of a machine, seeding the
// template on first use.
func (t *Tracker) View(ctx context.Context, machine model.Machine) ([]model.Record, error) {
	seq, err := t.load(ctx, machine)
	if err != nil {
		return nil, err
	}
	return zone.Recalculate(seq, t.mode), nil
}

// Add inserts an empty record at the top or bottom.
func (t *Tracker) Add(ctx context.Context, machine model.Machine, top bool) ([]model.Record, error) {
	return t.apply(ctx, machine, func(seq []model.Record) []model.Record {
		return sequence.Add(seq, top)
	})
}

// SetGameCount edits the game count text of a record.
func (t *Tracker) SetGameCount(ctx context.Context, machine model.Machine, id, gameCount string) ([]model.Record, error) {
	return t.apply(ctx, machine, func(seq []model.Record) []model.Record {
		return sequence.SetGameCount(seq, id, gameCount)
	})
}

// ToggleBonus selects or clears a bonus type on a record.
func (t *Tracker) ToggleBonus(ctx context.Context, machine model.Machine, id string, bonus model.BonusType) ([]model.Record, error) {
	return t.apply(ctx, machine, func(seq []model.Record) []model.Record {
		return sequence.ToggleBonus(seq, id, bonus)
	})
}

// ToggleSeparator flips the separator flag of a record.
func (t *Tracker) ToggleSeparator(ctx context.Context, machine model.Machine, id string) ([]model.Record, error) {
	return t.apply(ctx, machine, func(seq []model.Record) []model.Record {
		return sequence.ToggleSeparator(seq, id)
	})
}

// Delete removes a record.
func (t *Tracker) Delete(ctx context.Context, machine model.Machine, id string) ([]model.Record, error) {
	return t.apply(ctx, machine, func(seq []model.Record) []model.Record {
		return sequence.Delete(seq, id)
	})
}

// Move relocates a record between positions.
func (t *Tracker) Move(ctx context.Context, machine model.Machine, from, to int) ([]model.Record, error) {
	return t.apply(ctx, machine, func(seq []model.Record) []model.Record {
		return sequence.Move(seq, from, to)
	})
}

// Reverse flips the order of a machine's sequence.
func (t *Tracker) Reverse(ctx context.Context, machine model.Machine) ([]model.Record, error) {
	return t.apply(ctx, machine, sequence.Reverse)
}

// Clear resets a machine to the template.
func (t *Tracker) Clear(ctx context.Context, machine model.Machine) ([]model.Record, error) {
	return t.apply(ctx, machine, func([]model.Record) []model.Record {
		return sequence.Template()
	})
}

// ApplyExtracted merges extracted entries into a machine's sequence.
func (t *Tracker) ApplyExtracted(ctx context.Context, machine model.Machine, raws []model.RawRecord, overwrite bool) ([]model.Record, error) {
	return t.apply(ctx, machine, func(seq []model.Record) []model.Record {
		return sequence.Splice(seq, raws, overwrite)
	})
}

// Replace stores seq as the machine's sequence.
func (t *Tracker) Replace(ctx context.Context, machine model.Machine, seq []model.Record) ([]model.Record, error) {
	return t.apply(ctx, machine, func([]model.Record) []model.Record {
		return seq
	})
}

func (t *Tracker) apply(ctx context.Context, machine model.Machine, edit func([]model.Record) []model.Record) ([]model.Record, error) {
	seq, err := t.load(ctx, machine)
	if err != nil {
		return nil, err
	}
	next := edit(seq)
	if err := t.backend.SetSequence(ctx, machine, next); err != nil {
		return nil, fmt.Errorf("failed to save machine %d: %w", machine, err)
	}
	return zone.Recalculate(next, t.mode), nil
}

func (t *Tracker) load(ctx context.Context, machine model.Machine) ([]model.Record, error) {
	if _, err := model.ParseMachine(int(machine)); err != nil {
		return nil, err
	}
	saved, err := t.backend.HasSequence(ctx, machine)
	if err != nil {
		return nil, fmt.Errorf("failed to load machine %d: %w", machine, err)
	}
	if !saved {
		seq := sequence.Template()
		if err := t.backend.SetSequence(ctx, machine, seq); err != nil {
			return nil, fmt.Errorf("failed to seed machine %d: %w", machine, err)
		}
		return seq, nil
	}
	seq, err := t.backend.GetSequence(ctx, machine)
	if err != nil {
		return nil, fmt.Errorf("failed to load machine %d: %w", machine, err)
	}
	return seq, nil
}
