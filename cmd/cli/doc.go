// Package cli constructs the devaudit command-line interface. It wires the
// Cobra command hierarchy, the configuration loader and structured logging,
// builds the selected audit environment once per invocation and exposes one
// subcommand per environment operation.
package cli
