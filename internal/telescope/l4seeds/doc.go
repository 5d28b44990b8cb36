// Package l4seeds owns Layer 4 (Seeds) of the telescope data model.
//
// Responsibilities: turning every hit on the configured seed planes into an
// initial State whose slopes and curvature follow the nominal beam, carried
// from the beam origin to the hit through the geometry's field.
//
// Dependency rule: L4 may depend on L1-L3, never on L5+.
package l4seeds
