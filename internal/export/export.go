// Package export writes recalculated history to files.
package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/zonecalc/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

// SheetName is the worksheet used by WriteXLSX.
const SheetName = "History"

const bom = "\ufeff"

var header = []string{"番号", "ゲーム数", "ボーナス種別", "有利区間開始", "有利区間終了", "セグメント番号"}

// Document is the JSON and YAML export layout.
type Document struct {
	ExportDate   string  `json:"exportDate" yaml:"exportDate"`
	TotalRecords int     `json:"totalRecords" yaml:"totalRecords"`
	Data         []Entry `json:"data" yaml:"data"`
}

// Entry is one exported record.
type Entry struct {
	ID                 string `json:"id" yaml:"id"`
	GameCount          string `json:"gameCount" yaml:"gameCount"`
	BonusType          string `json:"bonusType" yaml:"bonusType"`
	IsSeparator        bool   `json:"isSeparator" yaml:"isSeparator"`
	FavorableZoneStart int    `json:"favorableZoneStart" yaml:"favorableZoneStart"`
	FavorableZoneEnd   int    `json:"favorableZoneEnd" yaml:"favorableZoneEnd"`
	SegmentNumber      int    `json:"segmentNumber" yaml:"segmentNumber"`
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatYAML, FormatXLSX:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv, json, yaml or xlsx)", s)
	}
}

// Write dispatches to the writer for format.
func Write(w io.Writer, format Format, records []model.Record, now time.Time) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatJSON:
		return WriteJSON(w, records, now)
	case FormatYAML:
		return WriteYAML(w, records, now)
	case FormatXLSX:
		return WriteXLSX(w, records)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteCSV writes a BOM-prefixed CSV with every cell quoted. Separator rows
// are left out and the remaining rows are numbered from 1.
func WriteCSV(w io.Writer, records []model.Record) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(bom); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	rows := append([][]string{header}, tableRows(records)...)
	for i, row := range rows {
		if i > 0 {
			if err := bw.WriteByte('\n'); err != nil {
				return fmt.Errorf("failed to write csv: %w", err)
			}
		}
		for j, cell := range row {
			if j > 0 {
				if err := bw.WriteByte(','); err != nil {
					return fmt.Errorf("failed to write csv: %w", err)
				}
			}
			if _, err := bw.WriteString(quote(cell)); err != nil {
				return fmt.Errorf("failed to write csv: %w", err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// WriteJSON writes the export document with two-space indentation.
func WriteJSON(w io.Writer, records []model.Record, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(records, now)); err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}
	return nil
}

// WriteYAML writes the export document as YAML.
func WriteYAML(w io.Writer, records []model.Record, now time.Time) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(records, now)); err != nil {
		return fmt.Errorf("failed to write yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to write yaml: %w", err)
	}
	return nil
}

// WriteXLSX writes the CSV table into a single worksheet.
func WriteXLSX(w io.Writer, records []model.Record) error {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close for in-memory workbook.
			_ = cerr
		}
	}()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	rows := append([][]string{header}, tableRows(records)...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+1, err)
		}
		values := make([]any, len(row))
		for j, v := range row {
			if n, err := strconv.Atoi(v); err == nil && i > 0 && j != 1 {
				values[j] = n
				continue
			}
			values[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

// NewDocument builds the export document. TotalRecords counts separators too.
func NewDocument(records []model.Record, now time.Time) Document {
	doc := Document{
		ExportDate:   now.UTC().Format("2006-01-02T15:04:05.000Z"),
		TotalRecords: len(records),
		Data:         make([]Entry, 0, len(records)),
	}
	for _, rec := range records {
		doc.Data = append(doc.Data, Entry{
			ID:                 rec.ID,
			GameCount:          rec.GameCount,
			BonusType:          rec.BonusType.String(),
			IsSeparator:        rec.IsSeparator,
			FavorableZoneStart: rec.FavorableZoneStart,
			FavorableZoneEnd:   rec.FavorableZoneEnd,
			SegmentNumber:      rec.SegmentNumber,
		})
	}
	return doc
}

// ReadRecords decodes either an export document or a bare JSON array of
// entries. Derived fields are ignored; callers recalculate.
func ReadRecords(r io.Reader) ([]model.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	data = bytes.TrimPrefix(bytes.TrimSpace(data), []byte(bom))

	var entries []Entry
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to decode records: %w", err)
		}
	} else {
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode records: %w", err)
		}
		entries = doc.Data
	}

	records := make([]model.Record, 0, len(entries))
	for _, e := range entries {
		bonus, separator := model.ParseBonusType(e.BonusType)
		records = append(records, model.Record{
			ID:          e.ID,
			GameCount:   e.GameCount,
			BonusType:   bonus,
			IsSeparator: e.IsSeparator || separator,
		})
	}
	return records, nil
}

func tableRows(records []model.Record) [][]string {
	rows := make([][]string, 0, len(records))
	n := 0
	for _, rec := range records {
		if rec.IsSeparator {
			continue
		}
		n++
		rows = append(rows, []string{
			strconv.Itoa(n),
			rec.GameCount,
			rec.BonusType.String(),
			strconv.Itoa(rec.FavorableZoneStart),
			strconv.Itoa(rec.FavorableZoneEnd),
			strconv.Itoa(rec.SegmentNumber),
		})
	}
	return rows
}

func quote(cell string) string {
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}
