package domain

import (
	"fmt"
	"strings"
)

// Level identifies one of the seven nesting levels of the goal tree.
type Level string

const (
	LevelRange    Level = "range"
	LevelMountain Level = "mountain"
	LevelHill     Level = "hill"
	LevelTerrain  Level = "terrain"
	LevelLength   Level = "length"
	LevelStep     Level = "step"
	LevelBreath   Level = "breath"
)

// Levels lists every level from coarsest to finest.
var Levels = []Level{
	LevelRange, LevelMountain, LevelHill, LevelTerrain, LevelLength, LevelStep, LevelBreath,
}

// Depth returns the zero-based depth of the level, or -1 if unknown.
func (l Level) Depth() int {
	for i, lv := range Levels {
		if lv == l {
			return i
		}
	}
	return -1
}

func (l Level) Valid() bool { return l.Depth() >= 0 }

// Child returns the level directly below l. The second return value is false
// for Breath and for unknown levels.
func (l Level) Child() (Level, bool) {
	d := l.Depth()
	if d < 0 || d == len(Levels)-1 {
		return "", false
	}
	return Levels[d+1], true
}

// Taggable reports whether nodes at this level carry a free-text tag.
func (l Level) Taggable() bool {
	return l == LevelMountain || l == LevelHill || l == LevelTerrain
}

// ParseLevel converts user input into a Level.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("unknown level %q (expected one of range|mountain|hill|terrain|length|step|breath)", s)
	}
	return l, nil
}
