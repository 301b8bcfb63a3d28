// Package chapter resolves named time markers within a video.
package chapter

import (
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Chapter is a named timestamp marker.
type Chapter struct {
	Time      float64 `toml:"time" json:"time"`
	Label     string  `toml:"label" json:"label"`
	Thumbnail string  `toml:"thumbnail,omitempty" json:"thumbnail,omitempty"`
}

// Active returns the chapter with the greatest Time not after t. Every entry
// is scanned, so callers may pass unsorted chapters; on equal times the later
// entry wins.
func Active(chapters []Chapter, t float64) mo.Option[Chapter] {
	started := lo.Filter(chapters, func(c Chapter, _ int) bool { return c.Time <= t })
	if len(started) == 0 {
		return mo.None[Chapter]()
	}
	return mo.Some(lo.MaxBy(started, func(a, b Chapter) bool { return a.Time >= b.Time }))
}

type chapterFile struct {
	Chapters []Chapter `toml:"chapter"`
}

// Load reads a TOML chapter list ([[chapter]] tables) and returns it sorted
// by time.
func Load(path string) ([]Chapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chapters: %w", err)
	}
	var f chapterFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse chapters %s: %w", path, err)
	}
	for i, c := range f.Chapters {
		if c.Time < 0 {
			return nil, fmt.Errorf("chapter %d (%q): negative time %v", i, c.Label, c.Time)
		}
	}
	sort.SliceStable(f.Chapters, func(i, j int) bool { return f.Chapters[i].Time < f.Chapters[j].Time })
	return f.Chapters, nil
}
