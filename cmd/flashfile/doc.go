// Package main is the entry point for flashfile.
//
// flashfile mounts a flash-style volume (in memory or backed by a host
// directory) and drives it through the single-handle file layer, either
// from scripts, an interactive shell, or an HTTP API.
//
// Configuration:
//   - Environment variables (12-factor)
//   - TOML file via --config (overrides env vars)
//   - Global flags (override both)
//
// Usage:
//
//	# Run a script against a host directory
//	flashfile --dir ./volume run init.js
//
//	# Interactive shell
//	flashfile --dir ./volume repl
//
//	# HTTP API with fault injection
//	flashfile --chaos 0.05 serve --port 8000
//
//	# Talk to a running server
//	flashfile --remote http://localhost:8000 ls '*.js'
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown of serve
package main
