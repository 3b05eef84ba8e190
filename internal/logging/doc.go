// Package logging builds the slog loggers used across pinchctl.
//
// Two handlers are available: a compact console handler for interactive use
// and a JSON handler for log shipping. Components tag their lines with a
// "component" attribute, which the console handler lifts in front of the
// message.
package logging
