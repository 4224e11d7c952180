package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cloudia/cloudia/internal/server"
)

// MaxWatchRows bounds the number of epochs kept in the watch table.
const MaxWatchRows = 500

// RecordMsg delivers a feed record to the WatchModel.
type RecordMsg server.FeedRecord

// FeedClosedMsg reports that the feed connection ended.
type FeedClosedMsg struct{}

// WaitForRecord returns a command reading the next record from ch.
func WaitForRecord(ch <-chan server.FeedRecord) tea.Cmd {
	return func() tea.Msg {
		rec, ok := <-ch
		if !ok {
			return FeedClosedMsg{}
		}
		return RecordMsg(rec)
	}
}

// watchKeyMap defines key bindings for the watch screen
type watchKeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Clear key.Binding
	Quit  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Clear, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Clear, k.Quit}}
}

func newWatchKeyMap() watchKeyMap {
	return watchKeyMap{
		Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Clear: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// WatchModel is the interactive live feed viewer.
type WatchModel struct {
	source  string
	records <-chan server.FeedRecord

	table   table.Model
	spinner spinner.Model
	battery progress.Model
	help    help.Model
	keys    watchKeyMap

	received int
	last     *server.FeedRecord
	closed   bool
	width    int
}

// NewWatchModel creates a viewer for records arriving on ch. source is
// shown in the title, typically the feed URL.
func NewWatchModel(source string, ch <-chan server.FeedRecord) WatchModel {
	width, height := GetTerminalSize()

	t := table.New(
		table.WithColumns(watchColumns(width)),
		table.WithFocused(true),
		table.WithHeight(tableHeight(height)),
	)
	styles := table.DefaultStyles()
	styles.Header = TableHeaderStyle
	styles.Selected = TableSelectedStyle
	t.SetStyles(styles)

	return WatchModel{
		source:  source,
		records: ch,
		table:   t,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		battery: progress.New(progress.WithDefaultGradient(), progress.WithWidth(20), progress.WithoutPercentage()),
		help:    help.New(),
		keys:    newWatchKeyMap(),
		width:   width,
	}
}

func watchColumns(width int) []table.Column {
	device := width - 8 - 4 - 5 - 7 - 5 - 14
	if device < 10 {
		device = 10
	}
	return []table.Column{
		{Title: "Time", Width: 8},
		{Title: "Device", Width: device},
		{Title: "Port", Width: 4},
		{Title: "Batt", Width: 5},
		{Title: "T", Width: 7},
		{Title: "H", Width: 5},
	}
}

func tableHeight(termHeight int) int {
	h := termHeight - 8 // title, status, gauge, help
	if h < 5 {
		h = 5
	}
	return h
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, WaitForRecord(m.records))
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Clear):
			m.table.SetRows(nil)
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetColumns(watchColumns(msg.Width))
		m.table.SetHeight(tableHeight(msg.Height))
		m.help.Width = msg.Width
		return m, nil

	case RecordMsg:
		rec := server.FeedRecord(msg)
		m.received++
		m.last = &rec
		m.table.SetRows(appendRows(m.table.Rows(), rec))
		return m, WaitForRecord(m.records)

	case FeedClosedMsg:
		m.closed = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// appendRows puts rec's epochs, newest first, above the existing rows.
func appendRows(existing []table.Row, rec server.FeedRecord) []table.Row {
	rows := make([]table.Row, 0, len(rec.Epochs)+len(existing))
	for _, e := range rec.Epochs {
		rows = append(rows, table.Row{
			e.Time.Local().Format("15:04:05"),
			rec.DisplayName(),
			fmt.Sprintf("%d", rec.Port),
			fmt.Sprintf("%.1fV", rec.Battery),
			cell(e, "T"),
			cell(e, "H"),
		})
	}
	rows = append(rows, existing...)
	if len(rows) > MaxWatchRows {
		rows = rows[:MaxWatchRows]
	}
	return rows
}

func cell(e server.FeedEpoch, name string) string {
	v, ok := e.Values[name]
	if !ok {
		return "-"
	}
	s := FormatValue(name, v)
	for _, f := range e.Flags {
		if f == name {
			return s + "!"
		}
	}
	return s
}

// View implements tea.Model
func (m WatchModel) View() string {
	var b strings.Builder

	title := HeaderTitleStyle.Render("CLOUDIA LIVE FEED") + HeaderCommandStyle.Render(m.source)
	b.WriteString(title + "\n\n")
	b.WriteString(m.table.View() + "\n")
	b.WriteString(m.status() + "\n")
	b.WriteString(StatusStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m WatchModel) status() string {
	switch {
	case m.closed:
		return StatusStyle.Foreground(ErrorColor).Render(FailureMarker + " feed closed")
	case m.last == nil:
		return StatusStyle.Render(m.spinner.View() + " waiting for uplinks...")
	}

	batt := fmt.Sprintf("%.1fV", m.last.Battery)
	if m.last.Battery < BatteryLow {
		batt = lipgloss.NewStyle().Foreground(WarningColor).Render(batt)
	}
	return StatusStyle.Render(fmt.Sprintf("%s %d uplinks · last %s at %s · battery ",
		m.spinner.View(), m.received, m.last.DisplayName(), m.last.Received.Local().Format(time.Kitchen))) +
		m.battery.ViewAs(BatteryFraction(m.last.Battery)) + " " + batt
}

// Received returns the number of records shown so far.
func (m WatchModel) Received() int {
	return m.received
}
