package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/ascent/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen      = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow     = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleYellowBold = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)
	StyleRed        = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue       = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple     = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim        = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg         = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader     = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold       = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// LevelStyle returns the style a node title is rendered with at its level.
// Coarse levels stand out; fine ones fade.
func LevelStyle(level domain.Level) lipgloss.Style {
	switch level {
	case domain.LevelRange:
		return StyleHeader
	case domain.LevelMountain:
		return StylePurple.Bold(true)
	case domain.LevelHill:
		return StyleBlue
	case domain.LevelTerrain, domain.LevelLength:
		return StyleFg
	case domain.LevelStep:
		return StyleYellow
	default:
		return StyleDim
	}
}

// LevelBadge returns a short dimmed level label such as "[hill]".
func LevelBadge(level domain.Level) string {
	return StyleDim.Render("[" + string(level) + "]")
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}

// Swatch renders a colored block for a user-chosen hex color, or nothing when
// the color is empty.
func Swatch(hex string) string {
	if hex == "" {
		return ""
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("■")
}
