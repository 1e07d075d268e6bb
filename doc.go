// Package plotrc implements the rc settings store for the plotting
// layer: a validated, hierarchical table of named settings with
// file persistence and scoped overrides.
//
// Every setting is registered up front with a type, a default, and
// optional constraints. Assignment validates before it mutates, so a
// rejected value never leaves the store half-changed. Meta settings
// such as meta.color and meta.linewidth propagate to their children
// on assignment.
//
// Values resolve through layers, highest priority first: scoped
// override frames pushed by Override, the optional environment layer,
// values applied by Set and Load, and the built-in defaults. Save
// writes only the settings that differ from their defaults, in a form
// Load reads back unchanged.
package plotrc
