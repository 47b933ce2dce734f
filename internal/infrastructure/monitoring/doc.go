/*
Package monitoring provides metrics collection for the file layer.

# Overview

This package implements Prometheus-based metrics on a private registry,
tracking file operations, bytes moved through the single open handle,
script executions and HTTP requests.

# Features

- File operation counts by outcome (ok, argument, precondition, io, fatal)
- File operation latency
- Bytes read and written
- Open handle gauge (0 or 1)
- Script execution outcomes and duration
- HTTP request metrics (latency, throughput)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Time operations
	timer := monitoring.NewTimer(metrics, "read")
	// ... perform operation ...
	timer.Stop("ok")

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

A nil *Metrics is valid and records nothing.
*/
package monitoring
