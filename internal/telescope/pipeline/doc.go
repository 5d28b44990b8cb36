// Package pipeline is the composition root of the track-candidate former.
//
// It wires L4 seeding, L5 propagation and the L6 cut and de-duplication
// into a per-event flow and runs events strictly one after another. It
// imports the layer packages; none of them import pipeline.
package pipeline
