// Package server wires configuration into a running flashfile service.
//
// NewStack builds the parts every entry point needs:
//  1. Logger from LOG_* settings
//  2. Volume backend (memory or host directory), optionally behind the
//     fault-injecting chaos driver
//  3. file.Manager with the configured chunk and name limits
//  4. script.Runtime exposing the manager to JavaScript
//
// NewServer adds the gin router, middleware and the /metrics endpoint.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
