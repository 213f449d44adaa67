package components

import (
	"vtlookup/ui/tui/styles"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/linechart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var _ Component = (*TrendWidget)(nil)

// HistoryCapacity is the number of passes the trend chart keeps.
const HistoryCapacity = 31

// TrendWidget charts a percentage over the last passes.
type TrendWidget struct {
	Chart   linechart.Model
	Title   string
	History []float64
	Width   int
	Height  int
}

func NewTrendWidget(title string, width, height int) *TrendWidget {
	// width, height, minX, maxX, minY, maxY
	lc := linechart.New(width, height, 0, HistoryCapacity-1, 0, 100)
	return &TrendWidget{
		Chart:   lc,
		Title:   title,
		History: make([]float64, 0, HistoryCapacity),
		Width:   width,
		Height:  height,
	}
}

func (c *TrendWidget) Init() tea.Cmd {
	return nil
}

func (c *TrendWidget) Push(value float64) {
	c.History = append(c.History, value)
	if len(c.History) > HistoryCapacity {
		c.History = c.History[1:]
	}
}

// Update is a no-op; the chart is not interactive.
func (c *TrendWidget) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return c, nil
}

func (c *TrendWidget) Resize(w, h int) {
	c.Width = w
	c.Height = h
	c.Chart.Resize(w, h)
}

// ChartView draws the history without the surrounding card.
func (c *TrendWidget) ChartView() string {
	c.Chart.Clear()
	for i := 0; i < len(c.History)-1; i++ {
		c.Chart.DrawBrailleLine(
			canvas.Float64Point{X: float64(i), Y: c.History[i]},
			canvas.Float64Point{X: float64(i + 1), Y: c.History[i+1]},
		)
	}
	c.Chart.DrawXYAxisAndLabel()
	return c.Chart.View()
}

func (c *TrendWidget) View() string {
	return styles.CardStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render(c.Title),
			c.ChartView(),
		),
	)
}
