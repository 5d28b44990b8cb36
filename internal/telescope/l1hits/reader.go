package l1hits

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/trackfinder/internal/telescope"
)

// maxLineBytes bounds a single event line.
const maxLineBytes = 16 * 1024 * 1024

// ErrDuplicateHitID is returned when an event lists the same hit id twice.
var ErrDuplicateHitID = errors.New("duplicate hit id")

// wireHit is the on-disk representation of a hit.
type wireHit struct {
	ID    int64      `json:"id"`
	Plane int        `json:"plane"`
	U     float64    `json:"u"`
	V     float64    `json:"v"`
	W     float64    `json:"w,omitempty"`
	Cov   [3]float64 `json:"cov"` // uu, uv, vv
}

// wireEvent is one JSON line. Hits is a pointer so that a missing key can be
// told apart from an empty list.
type wireEvent struct {
	Event int64      `json:"event"`
	Hits  *[]wireHit `json:"hits"`
}

// Reader decodes events from a JSON-lines stream, one event per line.
type Reader struct {
	sc   *bufio.Scanner
	line int
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Reader{sc: sc}
}

// Next returns the next event, or io.EOF after the last one. Blank lines
// are skipped.
func (r *Reader) Next() (Event, error) {
	for r.sc.Scan() {
		r.line++
		raw := r.sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var we wireEvent
		if err := json.Unmarshal(raw, &we); err != nil {
			return Event{}, fmt.Errorf("decode event on line %d: %w", r.line, err)
		}
		ev := Event{Number: we.Event}
		if we.Hits != nil {
			hits := make([]telescope.Hit, len(*we.Hits))
			seen := make(map[int64]int, len(*we.Hits))
			for i, wh := range *we.Hits {
				if first, dup := seen[wh.ID]; dup {
					return Event{}, fmt.Errorf("event %d on line %d: %w %d (planes %d and %d)",
						we.Event, r.line, ErrDuplicateHitID, wh.ID, (*we.Hits)[first].Plane, wh.Plane)
				}
				seen[wh.ID] = i
				hits[i] = telescope.Hit{
					ID:    wh.ID,
					Plane: wh.Plane,
					Local: r3.Vec{X: wh.U, Y: wh.V, Z: wh.W},
					Cov:   wh.Cov,
				}
			}
			ev.Hits = NewCollection(hits)
		}
		return ev, nil
	}
	if err := r.sc.Err(); err != nil {
		return Event{}, fmt.Errorf("read events: %w", err)
	}
	return Event{}, io.EOF
}

// ReadEvents decodes every event in r.
func ReadEvents(r io.Reader) ([]Event, error) {
	rd := NewReader(r)
	var events []Event
	for {
		ev, err := rd.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
}

// WriteEvent encodes ev as one JSON line.
func WriteEvent(w io.Writer, ev Event) error {
	we := wireEvent{Event: ev.Number}
	if ev.Hits != nil {
		hits := make([]wireHit, 0, ev.Hits.Len())
		for _, h := range ev.Hits.hits {
			hits = append(hits, wireHit{ID: h.ID, Plane: h.Plane, U: h.Local.X, V: h.Local.Y, W: h.Local.Z, Cov: h.Cov})
		}
		we.Hits = &hits
	}
	data, err := json.Marshal(we)
	if err != nil {
		return fmt.Errorf("encode event %d: %w", ev.Number, err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write event %d: %w", ev.Number, err)
	}
	return nil
}
