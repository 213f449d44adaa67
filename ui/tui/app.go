package tui

import (
	"context"
	"fmt"
	"time"

	"vtlookup/internal/engine"
	"vtlookup/internal/frame"
	"vtlookup/ui/tui/components"
	"vtlookup/ui/tui/state"
	"vtlookup/ui/tui/views"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

const (
	maxConsoleLogs = 100
	passTimeout    = 2 * time.Minute
)

// Puller looks up the watchlist once. *database.Watcher implements it.
type Puller interface {
	PullOnce(ctx context.Context) (*frame.Table, error)
}

// MainModel is the Bubble Tea Model acting as the Controller
type MainModel struct {
	puller         Puller
	config         engine.Config
	interval       time.Duration
	state          state.AppState
	spinner        spinner.Model
	trend          *components.TrendWidget
	table          table.Model
	menuCursor     int
	animCursor     float64
	velocity       float64 // Physics velocity
	spring         harmonica.Spring
	consoleScrollY int
	mouseX         int
	mouseY         int
	quitting       bool
	width          int
	height         int
}

// Messages
type TickMsg time.Time
type AnimateMsg time.Time
type ResultsLoadedMsg struct {
	Records *frame.Table
	Err     error
}

var tableColumns = []table.Column{
	{Title: "Indicator", Width: 44},
	{Title: "Kind", Width: 10},
	{Title: "Detections", Width: 10},
	{Title: "Ratio", Width: 7},
	{Title: "Verdict", Width: 7},
}

func InitialModel(puller Puller, cfg engine.Config, interval time.Duration) MainModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	// Increased frequency (12.0) for faster response and damping (0.9) to prevent overshoot
	spring := harmonica.NewSpring(harmonica.FPS(60), 12.0, 0.9)

	t := table.New(
		table.WithColumns(tableColumns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	return MainModel{
		puller:   puller,
		config:   cfg,
		interval: interval,
		spinner:  s,
		trend:    components.NewTrendWidget("Highest Ratio per Pass", 30, 10),
		table:    t,
		spring:   spring,
		state: state.AppState{
			RatioHistory: make([]float64, 0, components.HistoryCapacity),
			CurrentPage:  state.PageMenu,
		},
	}
}

func (m *MainModel) Init() tea.Cmd {
	zone.NewGlobal()
	return tea.Batch(
		m.spinner.Tick,
		fetchResultsCmd(m.puller),
		tickCmd(m.interval),
		animateCmd(),
	)
}

// Commands
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func animateCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*16, func(t time.Time) tea.Msg {
		return AnimateMsg(t)
	})
}

func fetchResultsCmd(p Puller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), passTimeout)
		defer cancel()
		records, err := p.PullOnce(ctx)
		return ResultsLoadedMsg{Records: records, Err: err}
	}
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case AnimateMsg:
		return m.handleAnimateMsg(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSizeMsg(msg)

	case TickMsg:
		return m.handleTickMsg(msg)

	case ResultsLoadedMsg:
		return m.handleResultsLoadedMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	}

	return m, nil
}

func (m *MainModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	if m.state.CurrentPage == state.PageMenu {
		switch msg.String() {
		case "up", "k":
			if m.menuCursor > 0 {
				m.menuCursor--
			}
		case "down", "j":
			if m.menuCursor < len(views.MenuOptions)-1 {
				m.menuCursor++
			}
		case "enter":
			m.navigateTo(m.menuCursor)
		}
		return m, nil
	}

	if msg.String() == "b" || msg.String() == "esc" || msg.String() == "backspace" {
		m.state.CurrentPage = state.PageMenu
		m.consoleScrollY = 0
		return m, nil
	}

	switch m.state.CurrentPage {
	case state.PageConsole:
		switch msg.String() {
		case "up", "k":
			if m.consoleScrollY > 0 {
				m.consoleScrollY--
			}
		case "down", "j":
			m.consoleScrollY++
		}
	case state.PageTable:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *MainModel) navigateTo(cursor int) {
	switch cursor {
	case 0:
		m.state.CurrentPage = state.PageConsole
	case 1:
		m.state.CurrentPage = state.PageDashboard
	case 2:
		m.state.CurrentPage = state.PageTrend
	case 3:
		m.state.CurrentPage = state.PageTable
	}
}

func (m *MainModel) handleAnimateMsg(msg AnimateMsg) (tea.Model, tea.Cmd) {
	var v float64 = m.velocity
	m.animCursor, v = m.spring.Update(m.animCursor, float64(m.menuCursor), v)
	m.velocity = v
	return m, animateCmd()
}

func (m *MainModel) handleWindowSizeMsg(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	newW := msg.Width/2 - 6
	if newW > 10 {
		m.trend.Resize(newW, 10)
	}
	if h := msg.Height - 12; h > 3 {
		m.table.SetHeight(h)
	}
	return m, nil
}

func (m *MainModel) handleTickMsg(msg TickMsg) (tea.Model, tea.Cmd) {
	return m, tea.Batch(
		fetchResultsCmd(m.puller),
		tickCmd(m.interval),
	)
}

func (m *MainModel) handleResultsLoadedMsg(msg ResultsLoadedMsg) (tea.Model, tea.Cmd) {
	now := time.Now()
	if msg.Err != nil {
		m.state.Err = msg.Err
		m.appendLog(fmt.Sprintf("[%s] pass failed: %v", now.Format("15:04:05"), msg.Err))
		return m, nil
	}

	// Update State
	m.state.Err = nil
	m.state.Records = msg.Records
	m.state.Results = engine.Evaluate(msg.Records, m.config)
	m.state.LastUpdate = now
	m.state.Passes++

	// Update History
	highest := 0.0
	for _, r := range m.state.Results {
		highest = max(highest, r.Ratio*100)
	}
	m.state.RatioHistory = append(m.state.RatioHistory, highest)
	if len(m.state.RatioHistory) > components.HistoryCapacity {
		m.state.RatioHistory = m.state.RatioHistory[1:]
	}
	m.trend.Push(highest)

	// Update Table
	rows := make([]table.Row, 0, len(m.state.Results))
	for _, r := range m.state.Results {
		rows = append(rows, table.Row{
			r.ID,
			r.Kind,
			fmt.Sprintf("%d/%d", r.Detections, r.Scans),
			fmt.Sprintf("%.1f%%", r.Ratio*100),
			r.Status,
		})
	}
	m.table.SetRows(rows)

	// Update Logs
	summary := engine.Summary(m.state.Results)
	m.appendLog(fmt.Sprintf("[%s] pass %d: %d indicators | CRIT: %d | WARN: %d | OK: %d | N/A: %d",
		now.Format("15:04:05"),
		m.state.Passes,
		len(m.state.Results),
		summary[engine.StatusCritical],
		summary[engine.StatusWarning],
		summary[engine.StatusHealthy],
		summary[engine.StatusUnknown],
	))
	for _, r := range m.state.Results {
		if r.Status == engine.StatusCritical {
			m.appendLog(fmt.Sprintf("           CRIT %s %s (%d/%d)", r.Kind, r.ID, r.Detections, r.Scans))
		}
	}
	return m, nil
}

func (m *MainModel) appendLog(line string) {
	m.state.ConsoleLogs = append(m.state.ConsoleLogs, line)
	if len(m.state.ConsoleLogs) > maxConsoleLogs {
		m.state.ConsoleLogs = m.state.ConsoleLogs[1:]
	}
}

func (m *MainModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	m.mouseX = msg.X
	m.mouseY = msg.Y

	if msg.Action == tea.MouseActionRelease && m.state.CurrentPage == state.PageMenu {
		for i := range views.MenuOptions {
			if zone.Get(fmt.Sprintf("menu_%d", i)).InBounds(msg) {
				m.menuCursor = i
				m.navigateTo(i)
				return m, nil
			}
		}
	}
	return m, nil
}

func (m *MainModel) View() string {
	if m.quitting {
		return "Bye!\n"
	}

	switch m.state.CurrentPage {
	case state.PageMenu:
		return views.RenderMenu(m.state, m.width, m.height, m.menuCursor, m.animCursor, m.mouseX, m.mouseY)
	case state.PageDashboard:
		return views.RenderDashboard(m.state, m.spinner.View())
	case state.PageConsole:
		return views.RenderRawConsole(m.state, m.width, m.height, m.consoleScrollY)
	case state.PageTrend:
		return views.RenderTrend(m.state, m.trend.ChartView(), m.width, m.height)
	case state.PageTable:
		return views.RenderTable(m.state, m.table.View(), m.width, m.height)
	default:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Bold(true).Render("Unknown view\n\nPress 'b' to go back"),
		)
	}
}

// Start runs the watchlist TUI, re-checking the watchlist every interval.
func Start(puller Puller, cfg engine.Config, interval time.Duration) error {
	m := InitialModel(puller, cfg, interval)
	p := tea.NewProgram(
		&m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	return err
}
