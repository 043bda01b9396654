// Package tui provides the Bubble Tea history editor.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/zonecalc/internal/extract"
	"github.com/verte-zerg/zonecalc/internal/model"
	"github.com/verte-zerg/zonecalc/internal/report"
	"github.com/verte-zerg/zonecalc/internal/tracker"
	"github.com/verte-zerg/zonecalc/internal/zone"
)

// ImageImporter extracts entries from the image at path.
type ImageImporter func(ctx context.Context, path string) ([]model.RawRecord, error)

type inputMode int

const (
	inputNone inputMode = iota
	inputGameCount
	inputImagePath
)

type importDoneMsg struct {
	machine   model.Machine
	overwrite bool
	raws      []model.RawRecord
	err       error
}

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	goldModeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#1976d2")).Bold(true)
	blackModeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	modalStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Model implements the Bubble Tea history editor.
type Model struct {
	ctx      context.Context
	tracker  *tracker.Tracker
	importer ImageImporter
	now      func() time.Time

	machine model.Machine
	records []model.Record

	table      table.Model
	report     viewport.Model
	showReport bool

	mode            inputMode
	input           textinput.Model
	editID          string
	importOverwrite bool
	busy            bool

	status string
	errMsg string

	width  int
	height int
}

// NewModel constructs the editor for machine. importer may be nil when image
// extraction is not configured.
func NewModel(ctx context.Context, tr *tracker.Tracker, machine model.Machine, importer ImageImporter) *Model {
	m := &Model{
		ctx:      ctx,
		tracker:  tr,
		importer: importer,
		now:      time.Now,
		machine:  machine,
		table:    newHistoryTable(),
		report:   viewport.New(0, 0),
		input:    newInput(),
	}
	m.load()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case importDoneMsg:
		m.finishImport(msg)
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.mode != inputNone {
			return m.updateInput(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.mode != inputNone {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.renderModal())
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	var body string
	if m.showReport {
		body = m.report.View()
	} else {
		body = m.table.View()
	}
	body = fitLines(body, m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showReport {
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "t", "esc":
			m.showReport = false
			return m, nil
		}
		var cmd tea.Cmd
		m.report, cmd = m.report.Update(msg)
		return m, cmd
	}

	selected, hasSelection := m.selected()
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab":
		m.machine = m.machine.Other()
		m.status = fmt.Sprintf("%d号機", m.machine)
		m.load()
		m.table.SetCursor(0)
		return m, nil
	case "m":
		next := model.ModeBlack
		if m.tracker.Mode() == model.ModeBlack {
			next = model.ModeGold
		}
		if err := m.tracker.SetMode(m.ctx, next); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.status = "mode " + next.String()
		m.load()
		return m, nil
	case "t":
		m.showReport = true
		m.renderReport()
		return m, nil
	case "a":
		m.apply(m.tracker.Add(m.ctx, m.machine, false))
		m.table.GotoBottom()
		return m, nil
	case "A":
		m.apply(m.tracker.Add(m.ctx, m.machine, true))
		m.table.GotoTop()
		return m, nil
	case "v":
		m.apply(m.tracker.Reverse(m.ctx, m.machine))
		return m, nil
	case "x":
		m.apply(m.tracker.Clear(m.ctx, m.machine))
		m.table.SetCursor(0)
		m.status = "cleared"
		return m, nil
	case "i", "I":
		if m.busy {
			return m, nil
		}
		if m.importer == nil {
			m.errMsg = extract.UserMessage(extract.ErrMissingAPIKey)
			return m, nil
		}
		m.importOverwrite = msg.String() == "I"
		return m, m.startInput(inputImagePath, "")
	}

	if !hasSelection {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	switch msg.String() {
	case "b":
		m.apply(m.tracker.ToggleBonus(m.ctx, m.machine, selected.ID, model.BonusBB))
	case "r":
		m.apply(m.tracker.ToggleBonus(m.ctx, m.machine, selected.ID, model.BonusRB))
	case "c":
		m.apply(m.tracker.ToggleBonus(m.ctx, m.machine, selected.ID, model.BonusCurrent))
	case "s":
		m.apply(m.tracker.ToggleSeparator(m.ctx, m.machine, selected.ID))
	case "d":
		m.apply(m.tracker.Delete(m.ctx, m.machine, selected.ID))
	case "J":
		m.moveSelected(1)
	case "K":
		m.moveSelected(-1)
	case "e", "enter":
		if selected.IsSeparator {
			return m, nil
		}
		m.editID = selected.ID
		return m, m.startInput(inputGameCount, selected.GameCount)
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) moveSelected(delta int) {
	from := m.table.Cursor()
	to := from + delta
	if to < 0 || to >= len(m.records) {
		return
	}
	m.apply(m.tracker.Move(m.ctx, m.machine, from, to))
	m.table.SetCursor(to)
}

func (m *Model) startInput(mode inputMode, value string) tea.Cmd {
	m.mode = mode
	m.errMsg = ""
	switch mode {
	case inputGameCount:
		m.input.Prompt = "Ｇ数: "
		m.input.CharLimit = 6
	case inputImagePath:
		m.input.Prompt = "画像: "
		m.input.CharLimit = 0
	}
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = inputNone
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		mode := m.mode
		value := strings.TrimSpace(m.input.Value())
		m.mode = inputNone
		m.input.Blur()
		switch mode {
		case inputGameCount:
			m.apply(m.tracker.SetGameCount(m.ctx, m.machine, m.editID, value))
			return m, nil
		case inputImagePath:
			if value == "" {
				return m, nil
			}
			return m, m.startImport(value)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) startImport(path string) tea.Cmd {
	m.busy = true
	m.status = "AI解析中..."
	ctx := m.ctx
	importer := m.importer
	machine := m.machine
	overwrite := m.importOverwrite
	return func() tea.Msg {
		raws, err := importer(ctx, path)
		return importDoneMsg{machine: machine, overwrite: overwrite, raws: raws, err: err}
	}
}

func (m *Model) finishImport(msg importDoneMsg) {
	m.busy = false
	m.status = ""
	if msg.err != nil {
		m.errMsg = extract.UserMessage(msg.err)
		return
	}
	if msg.machine != m.machine {
		if _, err := m.tracker.ApplyExtracted(m.ctx, msg.machine, msg.raws, msg.overwrite); err != nil {
			m.errMsg = err.Error()
			return
		}
		m.status = fmt.Sprintf("%d号機に%d件を読み込みました", msg.machine, len(msg.raws))
		return
	}
	m.apply(m.tracker.ApplyExtracted(m.ctx, msg.machine, msg.raws, msg.overwrite))
	m.status = fmt.Sprintf("%d件を読み込みました", len(msg.raws))
}

func (m *Model) load() {
	m.apply(m.tracker.View(m.ctx, m.machine))
}

func (m *Model) apply(records []model.Record, err error) {
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.records = records
	cursor := m.table.Cursor()
	m.table.SetRows(historyRows(records))
	if cursor >= len(records) {
		cursor = len(records) - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	m.table.SetCursor(cursor)
	if m.showReport {
		m.renderReport()
	}
}

func (m *Model) selected() (model.Record, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.records) {
		return model.Record{}, false
	}
	return m.records[i], true
}

func (m *Model) renderReport() {
	lines := report.Lines(m.records, m.tracker.Mode(), m.now(), report.Options{Color: true})
	m.report.SetContent(strings.Join(lines, "\n"))
	m.report.GotoTop()
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = lipgloss.Height(m.renderHeader())
	footerHeight = lipgloss.Height(m.renderFooter())
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	_, bodyHeight, _ := m.layoutHeights()
	m.table.SetWidth(m.width)
	m.table.SetHeight(bodyHeight)
	m.report.Width = m.width
	m.report.Height = bodyHeight
}

func (m *Model) renderHeader() string {
	tabs := make([]string, 0, 2)
	for _, machine := range []model.Machine{model.Machine1, model.Machine2} {
		label := fmt.Sprintf("%d号機", machine)
		if machine == m.machine {
			tabs = append(tabs, activeNavStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveNavStyle.Render(label))
		}
	}
	modeStyle := goldModeStyle
	if m.tracker.Mode() == model.ModeBlack {
		modeStyle = blackModeStyle
	}
	title := modeStyle.Render(report.Title(m.tracker.Mode()))
	return lipgloss.JoinHorizontal(lipgloss.Center, append(tabs, "  "+title)...)
}

func (m *Model) renderFooter() string {
	help := "j/k move  e edit  b/r/c bonus  s sep  a/A add  d del  J/K reorder  v rev  x clear  m mode  tab machine  i/I image  t report  q quit"
	if m.showReport {
		help = "t/esc back  j/k scroll  q quit"
	}
	lines := []string{footerStyle.Render(truncateLine(help, m.width))}
	switch {
	case m.errMsg != "":
		lines = append(lines, errorStyle.Render(m.errMsg))
	case m.status != "":
		lines = append(lines, statusStyle.Render(m.status))
	default:
		lines = append(lines, footerStyle.Render(report.SummaryLine(zone.Summarize(m.records))))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderModal() string {
	title := "ゲーム数を入力"
	if m.mode == inputImagePath {
		title = "履歴画像のパス (追加)"
		if m.importOverwrite {
			title = "履歴画像のパス (上書き)"
		}
	}
	body := title + "\n\n" + m.input.View() + "\n\n" + footerStyle.Render("enter ok  esc cancel")
	return modalStyle.Render(body)
}

func newInput() textinput.Model {
	input := textinput.New()
	input.Prompt = ""
	input.Width = 40
	return input
}
