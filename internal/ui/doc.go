// Package ui renders command lifecycle events and environment diagnostics.
//
// Both loggers translate internal events into concise human-readable messages
// on a zap logger, so CLI users see what the audit touched while structured
// fields stay available for machine consumption.
package ui
