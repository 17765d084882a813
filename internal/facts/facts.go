// Package facts picks the trivia line shown at the bottom of the panel.
package facts

import (
	"hash/fnv"
	"strconv"
	"time"
)

// Default is the built-in fact list.
var Default = []string{
	"Honey never spoils. Archaeologists have found 3000-year-old honey that's still edible.",
	"Octopuses have three hearts and blue blood.",
	"A day on Venus is longer than its year.",
	"Bananas are berries, but strawberries aren't.",
	"The Eiffel Tower can be 15 cm taller during summer.",
	"E-Paper displays use microcapsules containing charged white and black particles suspended in a clear fluid.",
	"Yellow is often used on displays to indicate warnings or highlights.",
	"Your E-Paper display retains its image without drawing any power.",
	"The fastest recorded wind speed on Earth was 253 mph during Cyclone Olivia in 1996.",
}

// Picker selects one fact per wall-clock hour.
type Picker struct {
	facts []string
}

// NewPicker falls back to Default when list is empty.
func NewPicker(list []string) *Picker {
	if len(list) == 0 {
		list = Default
	}
	return &Picker{facts: list}
}

// OfTheHour returns the same fact for every instant within one UTC hour.
func (p *Picker) OfTheHour(now time.Time) string {
	return p.facts[Index(now, len(p.facts))]
}

// Index hashes the hour bucket of now with FNV-1a and reduces it mod n.
func Index(now time.Time, n int) int {
	if n <= 0 {
		return 0
	}
	bucket := now.Unix() / 3600
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(bucket, 10)))
	return int(h.Sum32() % uint32(n))
}
