// Package main hosts the vidaudit CLI entrypoint and command graph.
//
// The Cobra-based command tree maps terminal invocations onto the audit
// pipeline: structural validation, cross-artifact reconciliation, the frame
// alignment and overlay pass, run history, and configuration scaffolding. It
// centralizes configuration resolution and structured logging setup so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
