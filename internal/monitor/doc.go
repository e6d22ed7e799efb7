// Package monitor renders simulation progress in the terminal.
//
// A running simulation feeds an [Observer], which throttles its state into
// [ProgressMsg] values for the Bubble Tea [Model]. Particles are drawn on a
// Braille [Canvas], two by four dots per character cell.
//
// # Key Bindings
//
//	q, Esc, Ctrl+C - stop the run and exit once it has finished
package monitor
