package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/zonecalc/internal/model"
	"github.com/verte-zerg/zonecalc/internal/zone"
)

var exportTime = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func sampleRecords() []model.Record {
	return zone.Recalculate([]model.Record{
		{ID: "a", GameCount: "100", BonusType: model.BonusBB},
		{ID: "b", IsSeparator: true},
		{ID: "c", GameCount: `5"0`, BonusType: model.BonusRB},
		{ID: "d", BonusType: model.BonusCurrent},
	}, model.ModeGold)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords()))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\ufeff"))
	lines := strings.Split(strings.TrimPrefix(out, "\ufeff"), "\n")
	assert.Equal(t, []string{
		`"番号","ゲーム数","ボーナス種別","有利区間開始","有利区間終了","セグメント番号"`,
		`"1","100","BB","100","169","1"`,
		`"2","5""0","RB","0","29","1"`,
		`"3","","CURRENT","29","29","2"`,
	}, lines)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleRecords(), exportTime))
	assert.Contains(t, buf.String(), "\n  \"totalRecords\": 4,")

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "2026-10-18T09:30:00.000Z", doc.ExportDate)
	assert.Equal(t, 4, doc.TotalRecords)
	require.Len(t, doc.Data, 4)
	assert.True(t, doc.Data[1].IsSeparator)
	assert.Equal(t, 169, doc.Data[0].FavorableZoneEnd)
	assert.Equal(t, "CURRENT", doc.Data[3].BonusType)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, sampleRecords(), exportTime))

	var doc Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 4, doc.TotalRecords)
	assert.Equal(t, "RB", doc.Data[2].BonusType)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleRecords()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, []string{"1", "100", "BB", "100", "169", "1"}, rows[1])
}

func TestReadRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleRecords(), exportTime))
	records, err := ReadRecords(&buf)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Zero(t, records[0].FavorableZoneEnd)
	assert.Equal(t, sampleRecords(), zone.Recalculate(records, model.ModeGold))

	records, err = ReadRecords(strings.NewReader(`[{"gameCount":"10","bonusType":"BB"},{"bonusType":"区切"}]`))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[1].IsSeparator)

	_, err = ReadRecords(strings.NewReader("nope"))
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"csv": FormatCSV, " JSON ": FormatJSON, "yml": FormatYAML, "xlsx": FormatXLSX} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}
