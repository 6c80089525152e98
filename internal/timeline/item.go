package timeline

import (
	"fmt"

	"github.com/alexanderramin/ascent/internal/timeutil"
)

// ItemType tags where a timeline item came from.
type ItemType string

const (
	TypeTask     ItemType = "task"
	TypeStaged   ItemType = "staged"
	TypeActivity ItemType = "activity"
)

// Item is a time-boxed entry of a day's schedule. The layout engine only
// reads items.
type Item struct {
	ID            string
	Label         string
	Color         string
	ScheduledTime string // HH:mm
	DurationMin   int
	Completed     bool
	Type          ItemType
}

// Interval returns the item's [start, end) in minutes past midnight.
func (it Item) Interval() (start, end int, err error) {
	start, err = timeutil.TimeToMinutes(it.ScheduledTime)
	if err != nil {
		return 0, 0, fmt.Errorf("item %s: %w", it.ID, err)
	}
	return start, start + it.DurationMin, nil
}

// Bounds is the minute-of-day window a day's schedule view renders.
type Bounds struct {
	Start int
	End   int
}

// Hours returns the number of hour rows covered by b.
func (b Bounds) Hours() int {
	return (b.End - b.Start) / 60
}

// Layout is the horizontal placement of an item, in percent of the column.
type Layout struct {
	WidthPercent  float64
	OffsetPercent float64
}

// PositionedItem is an item with its computed vertical and horizontal
// placement.
type PositionedItem struct {
	Item     Item
	Start    int
	End      int
	Top      float64
	Height   float64
	Overlaps []Item
	Layout   Layout
}
