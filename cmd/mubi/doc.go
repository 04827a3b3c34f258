// Package main hosts the mubi CLI entrypoint and command graph.
//
// The Cobra-based command tree runs availability refreshes against the
// JustWatch catalog, prints projected availability for the Mubi 1000 list,
// maintains the availability cache and the user's service preferences, and
// scaffolds configuration. It centralizes configuration resolution, .env
// loading, and logger setup so subcommands can focus on output.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
