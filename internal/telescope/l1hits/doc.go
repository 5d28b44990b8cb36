// Package l1hits owns Layer 1 (Hits) of the telescope data model.
//
// Responsibilities: per-event hit collections indexed by plane, and a
// JSON-lines reader for events produced by the upstream clustering stage.
// Key types: Event, Collection.
//
// Dependency rule: L1 depends only on the telescope data model.
package l1hits
