package l6candidates

import (
	"github.com/banshee-data/trackfinder/internal/telescope"
)

// KeepCandidate reports whether t carries at least
// planes - allowedMissing attached hits, where planes is the number of
// non-excluded planes.
func KeepCandidate(t *telescope.Track, planes, allowedMissing int) bool {
	return t.HitCount() >= planes-allowedMissing
}

// Filter returns the candidates that pass KeepCandidate, in input order.
func Filter(tracks []*telescope.Track, planes, allowedMissing int) []*telescope.Track {
	kept := make([]*telescope.Track, 0, len(tracks))
	for _, t := range tracks {
		if KeepCandidate(t, planes, allowedMissing) {
			kept = append(kept, t)
		}
	}
	return kept
}
