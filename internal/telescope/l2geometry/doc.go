// Package l2geometry owns Layer 2 (Geometry) of the telescope data model.
//
// Responsibilities: the Geometry collaborator consumed by seeding and
// propagation (plane order, dimensionality, local/global frames, next-plane
// intersection, momentum transport in a uniform field), and Planar, a rigid
// plane-stack implementation loaded from a JSON or YAML description.
//
// Geometry is injected into every consumer; there is no package-level
// instance. A Geometry is read-only while events are processed.
package l2geometry
