// Package telescope holds the shared data model of the track-candidate
// formation engine: hits, per-plane states, track candidates, the per-event
// seed map and arena, the fatal error taxonomy and the log streams.
//
// Layer packages build on it in data-flow order:
//
//	l1hits        per-event hit collections
//	l2geometry    plane stack, coordinate frames, field
//	l3motion      equations of motion and Runge-Kutta integration
//	l4seeds       initial states from seed-plane hits
//	l5tracks      forward propagation and hit association
//	l6candidates  hit-count filter and shared-hit de-duplication
//
// Dependency rule: an lN package may import lower layers but never a
// higher one. The pipeline package is the composition root.
package telescope
