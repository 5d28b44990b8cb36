// Package l5tracks owns Layer 5 (Tracks) of the telescope data model.
//
// Responsibilities: forward propagation of a seed through the downstream
// planes, covariance transport through the propagation Jacobian, and
// nearest-hit association under a window cut.
//
// One Propagator serves both tracking strategies. In ModePropagate the
// kinematics follow the seed and hits are only attached; in ModeKalman an
// attached hit also updates the state through the gain matrix.
//
// Dependency rule: L5 may depend on L1-L4, never on L6+.
package l5tracks
