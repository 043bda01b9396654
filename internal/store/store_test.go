package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/zonecalc/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "zonecalc.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestSequenceRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	records := []model.Record{
		{ID: "a", GameCount: "120", BonusType: model.BonusBB, FavorableZoneStart: 120, FavorableZoneEnd: 189, SegmentNumber: 1},
		{ID: "b", IsSeparator: true},
		{ID: "c", GameCount: "abc", BonusType: model.BonusCurrent},
	}
	if err := st.SetSequence(ctx, model.Machine1, records); err != nil {
		t.Fatalf("set sequence: %v", err)
	}

	got, err := st.GetSequence(ctx, model.Machine1)
	if err != nil {
		t.Fatalf("get sequence: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[0].ID != "a" || got[0].GameCount != "120" || got[0].BonusType != model.BonusBB {
		t.Fatalf("unexpected first record: %+v", got[0])
	}
	if got[0].FavorableZoneEnd != 0 || got[0].SegmentNumber != 0 {
		t.Fatalf("derived fields must not be persisted: %+v", got[0])
	}
	if !got[1].IsSeparator || got[2].BonusType != model.BonusCurrent || got[2].GameCount != "abc" {
		t.Fatalf("unexpected records: %+v", got)
	}

	other, err := st.GetSequence(ctx, model.Machine2)
	if err != nil {
		t.Fatalf("get machine 2: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("machines must be isolated, got %+v", other)
	}
}

func TestSetSequenceReplaces(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if err := st.SetSequence(ctx, model.Machine2, []model.Record{{ID: "x"}, {ID: "y"}}); err != nil {
		t.Fatalf("set sequence: %v", err)
	}
	if err := st.SetSequence(ctx, model.Machine2, []model.Record{{ID: "y"}}); err != nil {
		t.Fatalf("replace sequence: %v", err)
	}
	got, err := st.GetSequence(ctx, model.Machine2)
	if err != nil {
		t.Fatalf("get sequence: %v", err)
	}
	if len(got) != 1 || got[0].ID != "y" {
		t.Fatalf("unexpected records: %+v", got)
	}
}

func TestHasSequence(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	ok, err := st.HasSequence(ctx, model.Machine1)
	if err != nil || ok {
		t.Fatalf("expected no saved sequence, got %v %v", ok, err)
	}
	if err := st.SetSequence(ctx, model.Machine1, nil); err != nil {
		t.Fatalf("set empty sequence: %v", err)
	}
	ok, err = st.HasSequence(ctx, model.Machine1)
	if err != nil || !ok {
		t.Fatalf("expected emptied sequence to count as saved, got %v %v", ok, err)
	}
}

func TestSettings(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if _, ok, err := st.GetSetting(ctx, SettingMode); err != nil || ok {
		t.Fatalf("expected missing setting, got %v %v", ok, err)
	}
	if err := st.SetSetting(ctx, SettingMode, "BLACK"); err != nil {
		t.Fatalf("set setting: %v", err)
	}
	if err := st.SetSetting(ctx, SettingMode, "GOLD"); err != nil {
		t.Fatalf("overwrite setting: %v", err)
	}
	value, ok, err := st.GetSetting(ctx, SettingMode)
	if err != nil || !ok || value != "GOLD" {
		t.Fatalf("unexpected setting: %q %v %v", value, ok, err)
	}
}

func TestUsage(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	usage, err := st.GetUsage(ctx, "extract")
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if usage.Count != 0 || !usage.ResetAt.IsZero() {
		t.Fatalf("expected zero usage, got %+v", usage)
	}
	resetAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := st.SaveUsage(ctx, "extract", Usage{Count: 2, ResetAt: resetAt}); err != nil {
		t.Fatalf("save usage: %v", err)
	}
	usage, err = st.GetUsage(ctx, "extract")
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if usage.Count != 2 || !usage.ResetAt.Equal(resetAt) {
		t.Fatalf("unexpected usage: %+v", usage)
	}
}
