package tui

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"vtlookup/internal/engine"
	"vtlookup/internal/frame"
	"vtlookup/internal/vt"
	"vtlookup/ui/tui/state"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
)

func TestMain(m *testing.M) {
	zone.NewGlobal()
	os.Exit(m.Run())
}

// MockPuller for testing
type MockPuller struct{}

func (m MockPuller) PullOnce(ctx context.Context) (*frame.Table, error) {
	return frame.New(vt.ColumnID), nil
}

func watchResults() *frame.Table {
	t := frame.New(vt.ColumnID)
	t.Append(frame.Row{vt.ColumnID: "abc123", vt.ColumnType: "file", vt.ColumnDetections: 30, vt.ColumnScans: 70})
	t.Append(frame.Row{vt.ColumnID: "clean.example", vt.ColumnType: "domain", vt.ColumnDetections: 0, vt.ColumnScans: 90})
	t.Append(frame.Row{vt.ColumnID: "gone", vt.ColumnType: "url"})
	return t
}

func TestMenuNavigation(t *testing.T) {
	model := InitialModel(MockPuller{}, engine.DefaultConfig(), time.Minute)

	// Initial state
	if model.menuCursor != 0 {
		t.Errorf("Expected initial menu cursor 0, got %d", model.menuCursor)
	}
	if model.state.CurrentPage != state.PageMenu {
		t.Errorf("Expected initial page PageMenu, got %v", model.state.CurrentPage)
	}

	// Test Down Navigation
	cmd := tea.KeyMsg{Type: tea.KeyDown, Runes: []rune{}, Alt: false}
	updatedModel, _ := model.Update(cmd)
	m := updatedModel.(*MainModel)

	if m.menuCursor != 1 {
		t.Errorf("Expected menu cursor 1 after Down key, got %d", m.menuCursor)
	}

	// Cursor stops at the last option
	for i := 0; i < 10; i++ {
		updatedModel, _ = m.Update(cmd)
		m = updatedModel.(*MainModel)
	}
	if m.menuCursor != 3 {
		t.Errorf("Expected menu cursor to stop at 3, got %d", m.menuCursor)
	}

	// Test Up Navigation
	cmd = tea.KeyMsg{Type: tea.KeyUp, Runes: []rune{}, Alt: false}
	updatedModel, _ = m.Update(cmd)
	m = updatedModel.(*MainModel)

	if m.menuCursor != 2 {
		t.Errorf("Expected menu cursor 2 after Up key, got %d", m.menuCursor)
	}
}

func TestMenuAnimationLogic(t *testing.T) {
	model := InitialModel(MockPuller{}, engine.DefaultConfig(), time.Minute)

	// Move cursor to 1
	model.menuCursor = 1

	// Initial animation cursor should be 0
	if model.animCursor != 0 {
		t.Errorf("Expected initial animCursor 0, got %f", model.animCursor)
	}

	// The spring physics should move animCursor towards menuCursor (1.0)
	animateMsg := AnimateMsg(time.Now())
	updatedModel, _ := model.Update(animateMsg)
	m := updatedModel.(*MainModel)

	if m.animCursor <= 0 {
		t.Errorf("Expected animCursor to increase after animation frame, got %f", m.animCursor)
	}
	if m.animCursor >= 1.0 {
		t.Errorf("Expected animCursor to not reach target immediately, got %f", m.animCursor)
	}

	updatedModel, _ = m.Update(animateMsg)
	m = updatedModel.(*MainModel)
	prevCursor := m.animCursor

	updatedModel, _ = m.Update(animateMsg)
	m = updatedModel.(*MainModel)

	if m.animCursor <= prevCursor {
		t.Errorf("Expected animCursor to continue increasing, got %f (prev %f)", m.animCursor, prevCursor)
	}
}

func TestPageTransition(t *testing.T) {
	model := InitialModel(MockPuller{}, engine.DefaultConfig(), time.Minute)

	tests := []struct {
		cursor int
		page   state.Page
	}{
		{0, state.PageConsole},
		{1, state.PageDashboard},
		{2, state.PageTrend},
		{3, state.PageTable},
	}

	for _, tt := range tests {
		model.menuCursor = tt.cursor
		updatedModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m := updatedModel.(*MainModel)

		if m.state.CurrentPage != tt.page {
			t.Errorf("Expected page %v for cursor %d, got %v", tt.page, tt.cursor, m.state.CurrentPage)
		}
		if m.View() == "" {
			t.Errorf("Expected page %v to render", tt.page)
		}

		// Go Back
		updatedModel, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'b'}})
		m = updatedModel.(*MainModel)

		if m.state.CurrentPage != state.PageMenu {
			t.Errorf("Expected page to change back to PageMenu, got %v", m.state.CurrentPage)
		}
	}
}

func TestResultsLoaded(t *testing.T) {
	model := InitialModel(MockPuller{}, engine.DefaultConfig(), time.Minute)

	updatedModel, _ := model.Update(ResultsLoadedMsg{Records: watchResults()})
	m := updatedModel.(*MainModel)

	if m.state.Passes != 1 || len(m.state.Results) != 3 {
		t.Fatalf("Expected 1 pass with 3 results, got %d passes %d results", m.state.Passes, len(m.state.Results))
	}
	if got := m.state.RatioHistory; len(got) != 1 || got[0] < 42.8 || got[0] > 42.9 {
		t.Errorf("Expected highest ratio ~42.86%%, got %v", got)
	}
	if len(m.table.Rows()) != 3 || m.table.Rows()[0][4] != engine.StatusCritical {
		t.Errorf("Unexpected table rows %v", m.table.Rows())
	}

	logs := strings.Join(m.state.ConsoleLogs, "\n")
	if !strings.Contains(logs, "CRIT: 1") || !strings.Contains(logs, "CRIT file abc123") {
		t.Errorf("Unexpected console logs %q", logs)
	}

	updatedModel, _ = m.Update(ResultsLoadedMsg{Err: errors.New("quota exceeded")})
	m = updatedModel.(*MainModel)
	if m.state.Err == nil || m.state.Passes != 1 {
		t.Errorf("Expected failed pass to keep previous results, got %+v", m.state)
	}
	if last := m.state.ConsoleLogs[len(m.state.ConsoleLogs)-1]; !strings.Contains(last, "quota exceeded") {
		t.Errorf("Expected failure logged, got %q", last)
	}
}
