package formatter

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	if title != "" {
		titleRendered := StyleHeader.Render(strings.ToUpper(title))
		inner := titleRendered + "\n\n" + content
		return boxStyle.Render(inner)
	}

	return boxStyle.Render(content)
}

// HumanDate returns a human-friendly absolute date string relative to now.
func HumanDate(t, now time.Time) string {
	y1, m1, d1 := now.Date()
	y2, m2, d2 := t.Date()

	if y1 == y2 && m1 == m2 && d1 == d2 {
		return "Today " + t.Format("15:04")
	}
	tomorrow := now.AddDate(0, 0, 1)
	y3, m3, d3 := tomorrow.Date()
	if y2 == y3 && m2 == m3 && d2 == d3 {
		return "Tomorrow " + t.Format("15:04")
	}
	return t.Format("Jan 2, 2006 15:04")
}

// TriggerLabel describes when a staged step is promoted: overdue triggers
// are red, upcoming ones yellow.
func TriggerLabel(at, now time.Time) string {
	text := HumanDate(at.In(now.Location()), now)
	if !at.After(now) {
		return StyleRed.Render(text + " (due)")
	}
	return StyleYellow.Render(text)
}

// CompletionPill returns a colored completion indicator.
func CompletionPill(completed bool) string {
	if completed {
		return StyleDim.Render("✔ Done")
	}
	return StyleBlue.Render("○ Open")
}

// TruncID returns the first 8 characters of an ID, dimmed.
func TruncID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return StyleDim.Render(id)
}

// Percent formats a layout percentage without trailing zeros.
func Percent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64) + "%"
}
