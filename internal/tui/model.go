// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tui renders batch progress, either as a bubbletea view with one
// row per item or as plain status lines.
package tui

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdiddy/convertly/internal/batch"
	"github.com/pdiddy/convertly/pkg/types"
)

// Model is the bubbletea model of one batch run.
type Model struct {
	workflow string
	updates  <-chan batch.Update
	order    []string
	items    map[string]types.Item
	started  time.Time
	width    int
	quitting bool

	interrupt   func()
	interrupted bool
}

type doneMsg struct{}

type updateMsg batch.Update

// NewModel creates a view of items that follows updates until the channel
// is closed.
func NewModel(workflow string, items []types.Item, updates <-chan batch.Update) Model {
	m := Model{
		workflow: workflow,
		updates:  updates,
		items:    make(map[string]types.Item, len(items)),
		started:  time.Now(),
	}
	for _, it := range items {
		m.order = append(m.order, it.ID)
		m.items[it.ID] = it
	}
	return m
}

// OnInterrupt returns a copy of m that calls cancel when the user presses
// ctrl+c. The view keeps running until the updates channel closes.
func (m Model) OnInterrupt(cancel func()) Model {
	m.interrupt = cancel
	return m
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		if _, ok := m.items[msg.Item.ID]; !ok {
			m.order = append(m.order, msg.Item.ID)
		}
		m.items[msg.Item.ID] = msg.Item
		return m, listenForUpdates(m.updates)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && !m.interrupted {
			m.interrupted = true
			if m.interrupt != nil {
				m.interrupt()
			}
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

// Settled returns the number of items in a terminal state.
func (m Model) Settled() int {
	n := 0
	for _, it := range m.items {
		if it.Status().Terminal() {
			n++
		}
	}
	return n
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 24
	if m.width > 0 {
		barWidth = int(math.Min(40, float64(m.width/3)))
		if barWidth < 10 {
			barWidth = 10
		}
	}

	nameWidth := 0
	for _, id := range m.order {
		if n := len(m.items[id].DisplayName()); n > nameWidth {
			nameWidth = n
		}
	}

	title := titleStyle.Render("convertly " + m.workflow)
	if m.interrupted {
		title += busyStyle.Render("  cancelling...")
	}
	lines := []string{title}
	failed := 0
	for _, id := range m.order {
		it := m.items[id]
		if it.Status() == types.StatusError {
			failed++
		}
		lines = append(lines, renderRow(it, nameWidth, barWidth))
	}

	elapsed := time.Since(m.started).Round(time.Millisecond)
	lines = append(lines,
		labelStyle.Render(fmt.Sprintf("Settled: %d/%d", m.Settled(), len(m.order)))+
			dimStyle.Render(fmt.Sprintf("  errors:%d  elapsed:%s", failed, elapsed)),
	)
	return strings.Join(lines, "\n")
}

func renderRow(it types.Item, nameWidth, barWidth int) string {
	name := padRight(it.DisplayName(), nameWidth)
	bar := renderBar(barWidth, float64(it.Progress)/100)
	row := fmt.Sprintf("%s %s %s %s", labelStyle.Render(name), dimStyle.Render(padRight(it.SizeLabel(), 12)), barStyle.Render(bar), statusStyle(it.Status()).Render(string(it.Status())))

	switch st := it.State.(type) {
	case types.Done:
		row += " " + dimStyle.Render(st.DownloadURL)
	case types.Failed:
		row += " " + errorStyle.Render(st.Message)
	}
	return row
}

func listenForUpdates(updates <-chan batch.Update) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

// Plain prints one status line per update until the channel is closed.
func Plain(w io.Writer, updates <-chan batch.Update) {
	for u := range updates {
		batch.PrintStatus(w, u.Item)
	}
}

func statusStyle(s types.Status) lipgloss.Style {
	switch s {
	case types.StatusDone:
		return doneStyle
	case types.StatusError:
		return errorStyle
	case types.StatusProcessing:
		return busyStyle
	default:
		return dimStyle
	}
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	labelStyle = lipgloss.NewStyle().Foreground(ColorInk)
	barStyle   = lipgloss.NewStyle().Foreground(ColorAccentAlt)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorDim)
	doneStyle  = lipgloss.NewStyle().Foreground(ColorSuccess)
	busyStyle  = lipgloss.NewStyle().Foreground(ColorWarn)
	errorStyle = lipgloss.NewStyle().Foreground(ColorError)
)
