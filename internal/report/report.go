// Package report renders recalculated history as a plain text result sheet.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/zonecalc/internal/model"
	"github.com/verte-zerg/zonecalc/internal/zone"
)

const (
	emptyMessage   = "データがありません。履歴を入力してください。"
	separatorLabel = "--- 区切り ---"
	timeLayout     = "2006/1/2 15:04:05"
)

var headers = []string{"回", "Ｇ数", "種", "有利開始", "終了"}

var rightAlign = map[int]bool{0: true, 1: true, 3: true, 4: true}

// Options controls rendering.
type Options struct {
	// Color enables ANSI styling of the title and bonus column.
	Color bool
}

// Title returns the sheet title for mode.
func Title(mode model.Mode) string {
	if mode == model.ModeBlack {
		return "沖ドキBLACK&GS 有利区間計算結果"
	}
	return "沖ドキGOLD 有利区間計算結果"
}

// SummaryLine formats the record counts.
func SummaryLine(s zone.Summary) string {
	line := fmt.Sprintf("総レコード数: %d | BB回数: %d | RB回数: %d", s.Total, s.BB, s.RB)
	if s.Current > 0 {
		line += fmt.Sprintf(" | 現在: %d", s.Current)
	}
	return line
}

// Render writes the result sheet for already recalculated records.
func Render(w io.Writer, records []model.Record, mode model.Mode, now time.Time, opts Options) error {
	lines := Lines(records, mode, now, opts)
	if _, err := io.WriteString(w, strings.Join(lines, "\n")+"\n"); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Lines returns the result sheet line by line.
func Lines(records []model.Record, mode model.Mode, now time.Time, opts Options) []string {
	if len(records) == 0 {
		return []string{emptyMessage}
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1976d2"))
	if mode == model.ModeBlack {
		titleStyle = titleStyle.Foreground(lipgloss.Color("#ef4444"))
	}
	bbStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#d32f2f"))
	otherStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#1976d2"))

	title := Title(mode)
	var style func(int, string, string) string
	if opts.Color {
		title = titleStyle.Render(title)
		style = func(col int, cell, padded string) string {
			if col != 2 || cell == "" {
				return padded
			}
			if cell == model.BonusBB.Label() {
				return bbStyle.Render(padded)
			}
			return otherStyle.Render(padded)
		}
	}

	rows := make([][]string, 0, len(records))
	n := 0
	for _, rec := range records {
		if rec.IsSeparator {
			rows = append(rows, nil)
			continue
		}
		n++
		rows = append(rows, []string{
			strconv.Itoa(n),
			rec.GameCount,
			rec.BonusType.Label(),
			blankZero(rec.FavorableZoneStart),
			blankZero(rec.FavorableZoneEnd),
		})
	}
	widths := columnWidths(headers, rows)
	total := tableWidth(widths)

	lines := make([]string, 0, len(rows)+5)
	lines = append(lines, title, SummaryLine(zone.Summarize(records)), "")
	lines = append(lines, formatRow(headers, widths, nil, nil))
	for _, row := range rows {
		if row == nil {
			lines = append(lines, centerCell(separatorLabel, total))
			continue
		}
		lines = append(lines, formatRow(row, widths, rightAlign, style))
	}
	lines = append(lines, "", "生成日時: "+now.Format(timeLayout))
	return lines
}

func blankZero(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
