// Package log wraps the standard library logger with named, per-service
// loggers and debug gating.
//
// Every line is prefixed with the level and the service name:
//
//	2025/09/17 10:00:00.000000 DEBUG [search] using cached results
//
// Debug output is off by default. It can be switched on for every logger with
// SetGlobalDebug (the --debug flag and the debug config key end up here), for a
// single service with EnableDebugFor, or by exporting GISEARCH_DEBUG=1.
//
// The package name collides with the standard library on purpose; alias one
// of them when both are needed:
//
//	import (
//		stdlog "log"
//		"github.com/grantinsight/gisearch/pkg/log"
//	)
//
// Tests redirect output with SetOutput and a bytes.Buffer.
package log
