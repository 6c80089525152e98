package timeline

import (
	"fmt"
	"testing"

	"github.com/alexanderramin/ascent/internal/timeutil"
	"pgregory.net/rapid"
)

func TestItemsOverlap_SymmetricAndStrict(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s1 := rapid.IntRange(0, 1440).Draw(t, "s1")
		e1 := s1 + rapid.IntRange(0, 300).Draw(t, "d1")
		s2 := rapid.IntRange(0, 1440).Draw(t, "s2")
		e2 := s2 + rapid.IntRange(0, 300).Draw(t, "d2")

		got := ItemsOverlap(s1, e1, s2, e2)
		if got != ItemsOverlap(s2, e2, s1, e1) {
			t.Fatalf("asymmetric for [%d,%d) [%d,%d)", s1, e1, s2, e2)
		}

		// Some minute lies in both half-open intervals.
		want := max(s1, s2) < min(e1, e2)
		if got != want {
			t.Fatalf("ItemsOverlap(%d,%d,%d,%d) = %v, want %v", s1, e1, s2, e2, got, want)
		}
		if e1 == s2 && got {
			t.Fatalf("touching intervals reported as overlapping")
		}
	})
}

func TestCalculateBounds_CoversEveryItem(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "n")
		items := make([]Item, n)
		for i := range items {
			start := rapid.IntRange(0, 1439).Draw(t, "start")
			items[i] = Item{
				ID:            fmt.Sprintf("i%d", i),
				ScheduledTime: timeutil.MinutesToTime(start),
				DurationMin:   rapid.IntRange(0, 240).Draw(t, "dur"),
			}
		}
		b, err := CalculateBounds(items)
		if err != nil {
			t.Fatal(err)
		}
		if b.Start%60 != 0 || b.End%60 != 0 {
			t.Fatalf("bounds not hour aligned: %+v", b)
		}
		for _, it := range items {
			s, e, _ := it.Interval()
			if s < b.Start || e > b.End {
				t.Fatalf("item %s [%d,%d) outside %+v", it.ID, s, e, b)
			}
		}
	})
}
