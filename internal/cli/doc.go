// Package cli wires together the Cobra command tree for the codecoach binary.
//
// It defines the root command and all subcommands (review, chat, serve,
// lines, config, cache, models, version), binds flags, reads configuration,
// builds the review engine, and returns deterministic exit codes for CI
// gating.
package cli
