// Package sequence provides pure edits over ordered record lists.
//
// Every function returns a new slice and leaves its input untouched, so
// callers can keep the previous snapshot and recalculate the new one.
package sequence

import (
	"strconv"

	"github.com/oklog/ulid/v2"

	"github.com/verte-zerg/zonecalc/internal/model"
)

// NewID returns a fresh record identifier.
func NewID() string {
	return ulid.Make().String()
}

// NewRecord returns an empty record with a fresh ID.
func NewRecord() model.Record {
	return model.Record{ID: NewID()}
}

// NewCurrent returns a CURRENT marker record with a fresh ID.
func NewCurrent() model.Record {
	return model.Record{ID: NewID(), BonusType: model.BonusCurrent}
}

// Template returns the cleared sequence: two empty rows and a CURRENT row.
func Template() []model.Record {
	return []model.Record{NewRecord(), NewRecord(), NewCurrent()}
}

// Add inserts an empty record at the top or the bottom.
func Add(seq []model.Record, top bool) []model.Record {
	out := make([]model.Record, 0, len(seq)+1)
	if top {
		out = append(out, NewRecord())
		return append(out, seq...)
	}
	out = append(out, seq...)
	return append(out, NewRecord())
}

// Index returns the position of the record with id, or -1.
func Index(seq []model.Record, id string) int {
	for i, rec := range seq {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

// Update applies fn to the record with id. Unknown ids leave the sequence unchanged.
func Update(seq []model.Record, id string, fn func(*model.Record)) []model.Record {
	out := clone(seq)
	if i := Index(out, id); i >= 0 {
		fn(&out[i])
		out[i].ID = seq[i].ID
	}
	return out
}

// SetGameCount replaces the game count text of a record.
func SetGameCount(seq []model.Record, id, gameCount string) []model.Record {
	return Update(seq, id, func(r *model.Record) {
		r.GameCount = gameCount
	})
}

// ToggleBonus selects bonus on a record, or clears it to EMPTY when it is
// already selected.
func ToggleBonus(seq []model.Record, id string, bonus model.BonusType) []model.Record {
	return Update(seq, id, func(r *model.Record) {
		if r.BonusType == bonus {
			r.BonusType = model.BonusEmpty
			return
		}
		r.BonusType = bonus
	})
}

// ToggleSeparator flips the separator flag of a record.
func ToggleSeparator(seq []model.Record, id string) []model.Record {
	return Update(seq, id, func(r *model.Record) {
		r.IsSeparator = !r.IsSeparator
	})
}

// Delete removes the record with id.
func Delete(seq []model.Record, id string) []model.Record {
	out := make([]model.Record, 0, len(seq))
	for _, rec := range seq {
		if rec.ID == id {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Move relocates the record at index from to index to. Out of range
// indexes leave the sequence unchanged.
func Move(seq []model.Record, from, to int) []model.Record {
	if from < 0 || from >= len(seq) || to < 0 || to >= len(seq) || from == to {
		return clone(seq)
	}
	out := make([]model.Record, 0, len(seq))
	out = append(out, seq[:from]...)
	out = append(out, seq[from+1:]...)
	moved := seq[from]
	out = append(out[:to], append([]model.Record{moved}, out[to:]...)...)
	return out
}

// Reverse flips the order of the whole sequence, CURRENT row included.
func Reverse(seq []model.Record) []model.Record {
	out := make([]model.Record, len(seq))
	for i, rec := range seq {
		out[len(seq)-1-i] = rec
	}
	return out
}

// FromRaw converts extracted entries to new records.
func FromRaw(raws []model.RawRecord) []model.Record {
	out := make([]model.Record, 0, len(raws))
	for _, raw := range raws {
		out = append(out, model.Record{
			ID:        NewID(),
			GameCount: strconv.Itoa(raw.Game),
			BonusType: raw.Type,
		})
	}
	return out
}

// Splice merges extracted entries into seq. With overwrite the result is the
// extracted records followed by a CURRENT row. Otherwise they are inserted
// right before the first CURRENT record, or appended when there is none.
func Splice(seq []model.Record, raws []model.RawRecord, overwrite bool) []model.Record {
	added := FromRaw(raws)
	if overwrite {
		return append(added, NewCurrent())
	}
	idx := -1
	for i, rec := range seq {
		if rec.BonusType == model.BonusCurrent {
			idx = i
			break
		}
	}
	out := make([]model.Record, 0, len(seq)+len(added))
	if idx == -1 {
		out = append(out, seq...)
		return append(out, added...)
	}
	out = append(out, seq[:idx]...)
	out = append(out, added...)
	return append(out, seq[idx:]...)
}

func clone(seq []model.Record) []model.Record {
	out := make([]model.Record, len(seq))
	copy(out, seq)
	return out
}
