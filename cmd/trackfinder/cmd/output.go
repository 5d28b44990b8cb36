package cmd

import (
	"encoding/json"
	"io"

	"github.com/banshee-data/trackfinder/internal/telescope"
	"github.com/banshee-data/trackfinder/internal/telescope/pipeline"
)

type candidateRecord struct {
	Event     int64         `json:"event"`
	Ordinal   int           `json:"ordinal"`
	SeedPlane int           `json:"seed_plane"`
	HitIDs    []int64       `json:"hit_ids"`
	States    []stateRecord `json:"states"`
}

type stateRecord struct {
	Plane     int        `json:"plane"`
	Position  [3]float64 `json:"position"`
	Tx        float64    `json:"tx"`
	Ty        float64    `json:"ty"`
	QOverP    float64    `json:"q_over_p"`
	ArcLength float64    `json:"arc_length"`
	HitID     *int64     `json:"hit_id,omitempty"`
}

func newCandidateRecord(event int64, t *telescope.Track) candidateRecord {
	rec := candidateRecord{Event: event, Ordinal: t.Ordinal, SeedPlane: t.SeedPlane}
	for _, h := range t.Hits() {
		rec.HitIDs = append(rec.HitIDs, h.ID)
	}
	for i := range t.States {
		s := &t.States[i]
		sr := stateRecord{
			Plane:     s.Location,
			Position:  [3]float64{s.PositionGlobal.X, s.PositionGlobal.Y, s.PositionGlobal.Z},
			Tx:        s.Tx,
			Ty:        s.Ty,
			QOverP:    s.QOverP,
			ArcLength: s.ArcLength,
		}
		if s.Hit != nil {
			id := s.Hit.ID
			sr.HitID = &id
		}
		rec.States = append(rec.States, sr)
	}
	return rec
}

// candidateWriter emits one JSON line per final candidate.
func candidateWriter(w io.Writer) pipeline.Sink {
	enc := json.NewEncoder(w)
	return pipeline.SinkFunc(func(r pipeline.EventResult) error {
		for _, t := range r.Candidates {
			if err := enc.Encode(newCandidateRecord(r.Event, t)); err != nil {
				return err
			}
		}
		return nil
	})
}
