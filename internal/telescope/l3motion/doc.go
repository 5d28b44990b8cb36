// Package l3motion owns Layer 3 (Motion) of the telescope data model.
//
// Responsibilities: the equations of motion of a charged particle in a
// magnetic field, parameterised by z, and a generic explicit embedded
// Runge-Kutta stepper driven by a Butcher tableau.
//
// The integrator performs exactly one step per call and exposes its local
// error estimate; choosing the step size is the caller's job.
package l3motion
