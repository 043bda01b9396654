package report

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// columnWidths returns the display width of each column over the header and
// rows.
func columnWidths(headers []string, rows [][]string) []int {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	widths := make([]int, colCount)
	for i, header := range headers {
		widths[i] = displayWidth(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := displayWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func tableWidth(widths []int) int {
	if len(widths) == 0 {
		return 0
	}
	total := len(widths) - 1
	for _, w := range widths {
		total += w
	}
	return total
}

// formatRow pads each cell to its column. style, when set, decorates a cell
// after padding so escape codes do not affect alignment.
func formatRow(row []string, widths []int, rightAlignCols map[int]bool, style func(col int, cell, padded string) string) string {
	var b strings.Builder
	for i := 0; i < len(widths); i++ {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		padded := padCell(cell, widths[i], rightAlignCols[i])
		if style != nil {
			padded = style(i, cell, padded)
		}
		b.WriteString(padded)
	}
	return strings.TrimRight(b.String(), " ")
}

func padCell(value string, width int, rightAlign bool) string {
	valueWidth := displayWidth(value)
	if valueWidth >= width {
		return value
	}
	padding := width - valueWidth
	if rightAlign {
		return strings.Repeat(" ", padding) + value
	}
	return value + strings.Repeat(" ", padding)
}

func centerCell(value string, width int) string {
	valueWidth := displayWidth(value)
	if valueWidth >= width {
		return value
	}
	left := (width - valueWidth) / 2
	return strings.Repeat(" ", left) + value
}

func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}
