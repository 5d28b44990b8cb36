package l6candidates

import (
	"github.com/banshee-data/trackfinder/internal/telescope"
)

// SharedHits counts the hit identities attached to both a and b. Two hits
// at the same position with different identities are not shared.
func SharedHits(a, b *telescope.Track) int {
	ids := make(map[int64]struct{}, len(a.States))
	for _, h := range a.Hits() {
		ids[h.ID] = struct{}{}
	}
	n := 0
	for _, h := range b.Hits() {
		if _, ok := ids[h.ID]; ok {
			n++
		}
	}
	return n
}

// Deduplicate prunes candidates that overlap too much. Candidates are
// visited in the given order, which must be construction order. A candidate
// not already excluded is promoted, and it excludes every later candidate
// sharing more than allowedShared hit identities with it. The earlier
// candidate of a conflicting pair therefore always wins, and all duplicates
// of a promoted candidate are dropped even if they conflict with nothing
// else.
func Deduplicate(tracks []*telescope.Track, allowedShared int) []*telescope.Track {
	excluded := make([]bool, len(tracks))
	final := make([]*telescope.Track, 0, len(tracks))
	for i, t := range tracks {
		if excluded[i] {
			telescope.Tracef("candidate %d excluded by shared hits", t.Ordinal)
			continue
		}
		for j := i + 1; j < len(tracks); j++ {
			if excluded[j] {
				continue
			}
			if SharedHits(t, tracks[j]) > allowedShared {
				excluded[j] = true
			}
		}
		final = append(final, t)
	}
	return final
}
