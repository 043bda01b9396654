package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/zonecalc/internal/model"
)

const separatorCell = "--- 区切り ---"

func newHistoryTable() table.Model {
	columns := []table.Column{
		{Title: "回", Width: 4},
		{Title: "Ｇ数", Width: runewidth.StringWidth(separatorCell)},
		{Title: "種", Width: 6},
		{Title: "有利開始", Width: 9},
		{Title: "終了", Width: 6},
		{Title: "区間", Width: 4},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(1),
	)
	t.SetStyles(historyTableStyles())
	return t
}

func historyTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Background(lipgloss.Color("#3A3A3A")).
		Bold(true)
	return styles
}

// historyRows numbers non-separator records from 1 and blanks zero zone values.
func historyRows(records []model.Record) []table.Row {
	rows := make([]table.Row, 0, len(records))
	n := 0
	for _, rec := range records {
		if rec.IsSeparator {
			rows = append(rows, table.Row{"", separatorCell, "", "", "", ""})
			continue
		}
		n++
		rows = append(rows, table.Row{
			strconv.Itoa(n),
			rec.GameCount,
			rec.BonusType.Label(),
			blankZero(rec.FavorableZoneStart),
			blankZero(rec.FavorableZoneEnd),
			strconv.Itoa(rec.SegmentNumber),
		})
	}
	return rows
}

func blankZero(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}
