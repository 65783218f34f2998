package status

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

func TestNewBar_Defaults(t *testing.T) {
	bar := NewBar(nil, nil)

	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.Zero(t, bar.SourceCount())
}

func TestBar_ViewShowsRoleSourcesAndHints(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(120)
	bar.SetRole(domain.RoleStaff)
	bar.SetSourceCount(3)

	view := bar.View()

	assert.Contains(t, view, "staff")
	assert.Contains(t, view, "3 sources")
	assert.Contains(t, view, "enter: send")
	assert.Contains(t, view, "esc: quit")
	assert.NotContains(t, view, "\n", "bar fits on one line")
	assert.Equal(t, 120, lipgloss.Width(view))
}

func TestBar_FillsWidthWithoutWrapping(t *testing.T) {
	for _, width := range []int{60, 80, 120} {
		bar := NewBar(nil, nil)
		bar.SetWidth(width)
		bar.SetRole(domain.RoleStudent)

		view := bar.View()

		assert.Equal(t, 1, lipgloss.Height(view), "width %d", width)
		assert.Equal(t, width, lipgloss.Width(view), "width %d", width)
	}
}

func TestBar_ViewByState(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(120)

	bar.SetState(StateThinking)
	assert.Contains(t, bar.View(), "Thinking...")

	bar.SetState(StateError)
	assert.Contains(t, bar.View(), "Error")

	bar.SetMessage("index down")
	assert.Contains(t, bar.View(), "Error: index down")
}

func TestBar_Clear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateError)
	bar.SetMessage("boom")
	bar.SetSourceCount(2)
	bar.SetRole(domain.RolePublic)

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.Zero(t, bar.SourceCount())
	assert.Contains(t, bar.View(), "public", "role survives a clear")
}
