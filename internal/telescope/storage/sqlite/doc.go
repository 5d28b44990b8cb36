// Package sqlite persists tracking runs and their track candidates so the
// downstream refit can pick them up.
//
// All SQL for the telescope domain lives here; the layer packages never
// see a database handle. The schema is managed by embedded golang-migrate
// migrations applied in Open.
package sqlite
