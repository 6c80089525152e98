package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/ascent/internal/timeline"
	"github.com/alexanderramin/ascent/internal/timeutil"
)

// RenderTimeline renders a laid-out day as a table of time slots with their
// vertical and horizontal placement.
func RenderTimeline(bounds timeline.Bounds, items []timeline.PositionedItem) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s–%s (%dh)\n\n",
		Dim("Window"),
		timeutil.MinutesToTime(bounds.Start),
		timeutil.MinutesToTime(bounds.End),
		bounds.Hours(),
	))

	if len(items) == 0 {
		b.WriteString(Dim("Nothing scheduled.") + "\n")
		return b.String()
	}

	headers := []string{"TIME", "ITEM", "TYPE", "TOP", "HEIGHT", "WIDTH", "OFFSET", "OVERLAPS"}
	rows := make([][]string, 0, len(items))
	for _, p := range items {
		label := Swatch(p.Item.Color)
		if label != "" {
			label += " "
		}
		if p.Item.Completed {
			label += Dim(p.Item.Label)
		} else {
			label += p.Item.Label
		}

		overlaps := make([]string, 0, len(p.Overlaps))
		for _, o := range p.Overlaps {
			overlaps = append(overlaps, o.Label)
		}

		rows = append(rows, []string{
			timeutil.MinutesToTime(p.Start) + "–" + timeutil.MinutesToTime(p.End),
			label,
			typeLabel(p.Item.Type),
			fmt.Sprintf("%.0fpx", p.Top),
			fmt.Sprintf("%.0fpx", p.Height),
			Percent(p.Layout.WidthPercent),
			Percent(p.Layout.OffsetPercent),
			strings.Join(overlaps, ", "),
		})
	}
	b.WriteString(RenderTable(headers, rows))
	return b.String()
}

func typeLabel(t timeline.ItemType) string {
	switch t {
	case timeline.TypeStaged:
		return StyleYellow.Render(string(t))
	case timeline.TypeActivity:
		return StylePurple.Render(string(t))
	default:
		return StyleBlue.Render(string(t))
	}
}
