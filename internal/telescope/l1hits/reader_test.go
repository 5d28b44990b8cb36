package l1hits

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackfinder/internal/telescope"
)

func TestReadEvents(t *testing.T) {
	input := `{"event": 1, "hits": [{"id": 10, "plane": 0, "u": 1.5, "v": -2, "cov": [0.01, 0, 0.02]}, {"id": 11, "plane": 1, "u": 0, "v": 0, "cov": [0.01, 0, 0.01]}]}

{"event": 2, "hits": []}
{"event": 3}
`
	events, err := ReadEvents(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, int64(1), events[0].Number)
	require.True(t, events[0].HasHits())
	assert.Equal(t, 2, events[0].Hits.Len())
	p0 := events[0].Hits.OnPlane(0)
	require.Len(t, p0, 1)
	assert.Equal(t, int64(10), p0[0].ID)
	assert.Equal(t, 1.5, p0[0].Local.X)
	assert.Equal(t, -2.0, p0[0].Local.Y)
	assert.Equal(t, [3]float64{0.01, 0, 0.02}, p0[0].Cov)

	// An empty list is a present, empty collection.
	assert.True(t, events[1].HasHits())
	assert.Equal(t, 0, events[1].Hits.Len())

	// A missing key is a missing collection.
	assert.False(t, events[2].HasHits())
}

func TestReadEventsMalformed(t *testing.T) {
	_, err := ReadEvents(strings.NewReader("{\"event\": 1}\n{not json}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadEventsRejectsDuplicateHitIDs(t *testing.T) {
	input := `{"event": 1, "hits": [{"id": 3, "plane": 0}]}
{"event": 2, "hits": [{"id": 4, "plane": 0}, {"id": 5, "plane": 1}, {"id": 4, "plane": 2}]}
`
	_, err := ReadEvents(strings.NewReader(input))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateHitID))
	assert.Contains(t, err.Error(), "event 2 on line 2")
	assert.Contains(t, err.Error(), "planes 0 and 2")

	// The same id in different events is fine.
	events, err := ReadEvents(strings.NewReader(`{"event": 1, "hits": [{"id": 3, "plane": 0}]}
{"event": 2, "hits": [{"id": 3, "plane": 0}]}
`))
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestWriteEventRoundTrip(t *testing.T) {
	in := []Event{
		{Number: 5, Hits: NewCollection([]telescope.Hit{{ID: 1, Plane: 2, Cov: [3]float64{1, 0, 1}}})},
		{Number: 6},
	}
	var buf bytes.Buffer
	for _, ev := range in {
		require.NoError(t, WriteEvent(&buf, ev))
	}

	out, err := ReadEvents(&buf)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].Hits.OnPlane(2)[0].ID)
	assert.False(t, out[1].HasHits())
}

func TestCollectionOnPlaneKeepsOrder(t *testing.T) {
	c := NewCollection([]telescope.Hit{{ID: 3, Plane: 1}, {ID: 1, Plane: 0}, {ID: 2, Plane: 1}})
	got := c.OnPlane(1)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)
	assert.Empty(t, c.OnPlane(9))
}
