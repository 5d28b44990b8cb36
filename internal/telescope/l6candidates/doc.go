// Package l6candidates owns Layer 6 (Candidates) of the telescope data model.
//
// Responsibilities: the hit-count cut applied to finished candidates and
// the shared-hit de-duplication that turns the surviving candidates of an
// event into the final, ordered candidate list.
//
// Both stages are pure functions of their inputs; no re-propagation
// happens here.
//
// Dependency rule: L6 may depend on L1-L5, never on pipeline.
package l6candidates
