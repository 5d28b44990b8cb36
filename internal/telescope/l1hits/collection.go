package l1hits

import (
	"github.com/banshee-data/trackfinder/internal/telescope"
)

// Collection is the read-only set of hits of one event. The pointers handed
// out by OnPlane refer into the collection's own storage and stay valid for
// the lifetime of the collection.
type Collection struct {
	hits    []telescope.Hit
	byPlane map[int][]*telescope.Hit
}

// NewCollection indexes hits by plane, preserving input order per plane.
func NewCollection(hits []telescope.Hit) *Collection {
	c := &Collection{
		hits:    append([]telescope.Hit(nil), hits...),
		byPlane: make(map[int][]*telescope.Hit),
	}
	for i := range c.hits {
		h := &c.hits[i]
		c.byPlane[h.Plane] = append(c.byPlane[h.Plane], h)
	}
	return c
}

// OnPlane returns the hits on plane id in input order.
func (c *Collection) OnPlane(id int) []*telescope.Hit {
	return c.byPlane[id]
}

// Len returns the total number of hits.
func (c *Collection) Len() int { return len(c.hits) }

// Event is one triggered readout. A nil Hits collection means the upstream
// producer did not provide one for this event.
type Event struct {
	Number int64
	Hits   *Collection
}

// HasHits reports whether the hit collection is present.
func (e Event) HasHits() bool { return e.Hits != nil }
