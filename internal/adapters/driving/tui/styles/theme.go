// Package styles provides the colour theme and lipgloss styles for the chat TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

// Theme is the chat colour palette.
type Theme struct {
	Accent    lipgloss.Color
	User      lipgloss.Color
	Assistant lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Error     lipgloss.Color
	Border    lipgloss.Color
	StatusBg  lipgloss.Color

	// Roles colours the role badge in the status bar.
	Roles map[domain.AccessRole]lipgloss.Color
}

// DefaultTheme returns the default palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:    lipgloss.Color("#2563EB"),
		User:      lipgloss.Color("#F59E0B"),
		Assistant: lipgloss.Color("#10B981"),
		Text:      lipgloss.Color("#E5E7EB"),
		Muted:     lipgloss.Color("#9CA3AF"),
		Error:     lipgloss.Color("#EF4444"),
		Border:    lipgloss.Color("#374151"),
		StatusBg:  lipgloss.Color("#111827"),
		Roles: map[domain.AccessRole]lipgloss.Color{
			domain.RolePublic:  lipgloss.Color("#9CA3AF"),
			domain.RoleStudent: lipgloss.Color("#38BDF8"),
			domain.RoleStaff:   lipgloss.Color("#C084FC"),
		},
	}
}

// Styles holds the rendered styles for one theme.
type Styles struct {
	theme *Theme

	Title          lipgloss.Style
	Subtitle       lipgloss.Style
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Answer         lipgloss.Style
	Citation       lipgloss.Style
	Muted          lipgloss.Style
	Error          lipgloss.Style
	InputField     lipgloss.Style
	StatusBar      lipgloss.Style
}

// NewStyles builds styles from theme. A nil theme uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title:          lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		Subtitle:       lipgloss.NewStyle().Bold(true).Foreground(theme.Text),
		UserLabel:      lipgloss.NewStyle().Bold(true).Foreground(theme.User),
		AssistantLabel: lipgloss.NewStyle().Bold(true).Foreground(theme.Assistant),
		Answer:         lipgloss.NewStyle().Foreground(theme.Text),
		Citation:       lipgloss.NewStyle().Italic(true).Foreground(theme.Muted).PaddingLeft(2),
		Muted:          lipgloss.NewStyle().Foreground(theme.Muted),
		Error:          lipgloss.NewStyle().Foreground(theme.Error),

		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Background(theme.StatusBg).
			Padding(0, 1),
	}
}

// DefaultStyles returns styles for the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette these styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// RoleBadge renders the role name in its colour. Unknown roles use Muted.
func (s *Styles) RoleBadge(role domain.AccessRole) string {
	colour, ok := s.theme.Roles[role]
	if !ok {
		colour = s.theme.Muted
	}
	return lipgloss.NewStyle().Bold(true).Foreground(colour).Render(string(role))
}
