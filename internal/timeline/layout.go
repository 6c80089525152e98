package timeline

import "github.com/alexanderramin/ascent/internal/timeutil"

const (
	// HourHeightPx is the vertical size of one hour row.
	HourHeightPx = 80.0

	// WideWidthPercent is the width of an item that overlaps nothing.
	WideWidthPercent = 90.0
	// NarrowWidthPercent is the width of an item that shares its time with others.
	NarrowWidthPercent = 45.0
	// OddOffsetPercent shifts odd-indexed overlapping items into the second lane.
	OddOffsetPercent = 50.0
)

// CalculateBounds returns the hour-aligned window covering every item. An
// empty day spans the whole day. Items outside midnight-to-midnight widen the
// window without wrapping.
func CalculateBounds(items []Item) (Bounds, error) {
	if len(items) == 0 {
		return Bounds{Start: 0, End: timeutil.MinutesPerDay}, nil
	}
	var earliest, latest int
	for i, it := range items {
		s, e, err := it.Interval()
		if err != nil {
			return Bounds{}, err
		}
		if i == 0 || s < earliest {
			earliest = s
		}
		if i == 0 || e > latest {
			latest = e
		}
	}
	return Bounds{Start: floorHour(earliest), End: ceilHour(latest)}, nil
}

// ItemsOverlap reports whether [s1, e1) and [s2, e2) intersect. Touching
// endpoints do not overlap.
func ItemsOverlap(s1, e1, s2, e2 int) bool {
	return s1 < e2 && e1 > s2
}

// FindOverlaps returns every other item of all whose interval intersects
// item's. Items are matched to item by ID.
func FindOverlaps(item Item, all []Item) ([]Item, error) {
	s1, e1, err := item.Interval()
	if err != nil {
		return nil, err
	}
	var out []Item
	for _, other := range all {
		if other.ID == item.ID {
			continue
		}
		s2, e2, err := other.Interval()
		if err != nil {
			return nil, err
		}
		if ItemsOverlap(s1, e1, s2, e2) {
			out = append(out, other)
		}
	}
	return out, nil
}

// CalculateItemPositions places every item inside bounds. Zero-duration items
// get a zero height; any minimum visual height belongs to the renderer.
func CalculateItemPositions(items []Item, bounds Bounds) ([]PositionedItem, error) {
	out := make([]PositionedItem, 0, len(items))
	for i, it := range items {
		s, e, err := it.Interval()
		if err != nil {
			return nil, err
		}
		overlaps, err := FindOverlaps(it, items)
		if err != nil {
			return nil, err
		}
		out = append(out, PositionedItem{
			Item:     it,
			Start:    s,
			End:      e,
			Top:      float64(s-bounds.Start) / 60 * HourHeightPx,
			Height:   float64(it.DurationMin) / 60 * HourHeightPx,
			Overlaps: overlaps,
			Layout:   CalculateOverlapLayout(len(overlaps) > 0, i),
		})
	}
	return out, nil
}

// CalculateOverlapLayout packs overlapping items into two lanes by index
// parity. Three or more mutually overlapping items share lanes and stack.
func CalculateOverlapLayout(hasOverlaps bool, index int) Layout {
	if !hasOverlaps {
		return Layout{WidthPercent: WideWidthPercent}
	}
	if index%2 == 0 {
		return Layout{WidthPercent: NarrowWidthPercent}
	}
	return Layout{WidthPercent: NarrowWidthPercent, OffsetPercent: OddOffsetPercent}
}

// LayoutDay computes bounds and positions in one call.
func LayoutDay(items []Item) (Bounds, []PositionedItem, error) {
	b, err := CalculateBounds(items)
	if err != nil {
		return Bounds{}, nil, err
	}
	pos, err := CalculateItemPositions(items, b)
	if err != nil {
		return Bounds{}, nil, err
	}
	return b, pos, nil
}

func floorHour(m int) int {
	if m >= 0 {
		return m / 60 * 60
	}
	return -ceilHour(-m)
}

func ceilHour(m int) int {
	if m >= 0 {
		return (m + 59) / 60 * 60
	}
	return -floorHour(-m)
}
