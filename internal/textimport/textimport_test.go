package textimport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/zonecalc/internal/model"
)

func TestParseLines(t *testing.T) {
	input := strings.Join([]string{
		"# machine 1",
		"",
		"120 BB",
		"45G rb",
		"０ BB",
		"３００　ＢＢ",
		"77, RB",
		"not an entry",
		"12 CURRENT",
	}, "\n")
	got, err := ParseLines(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []model.RawRecord{
		{Game: 120, Type: model.BonusBB},
		{Game: 45, Type: model.BonusRB},
		{Game: 300, Type: model.BonusBB},
		{Game: 77, Type: model.BonusRB},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("record %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestParseLinesEmpty(t *testing.T) {
	if _, err := ParseLines(strings.NewReader("\n# nothing\n")); err == nil {
		t.Fatalf("expected error for empty history")
	}
}

func TestLoadRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.txt")
	if err := os.WriteFile(path, []byte("10 BB\n20 RB\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := LoadRecords(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[1].Type != model.BonusRB {
		t.Fatalf("unexpected records: %+v", got)
	}
	if _, err := LoadRecords(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
