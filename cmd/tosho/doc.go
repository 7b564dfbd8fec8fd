// Package main hosts the tosho CLI entrypoint and command graph.
//
// The Cobra-based command tree covers library management (add, list, remove,
// set), the check cycle that fetches new chapters, status reporting, and the
// scaffolding commands for configuration files and crontab scheduling. It
// centralizes configuration resolution and store access so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
