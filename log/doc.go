// Package log provides the leveled logging interface used across the
// deep-research pipeline.
//
// Components accept any Logger; when none is supplied they fall back to the
// package-level default. Two implementations ship with the module: a
// DefaultLogger on Go's standard log package and a GologLogger wrapper for
// github.com/kataras/golog.
//
// # Log Levels
//
// Five levels in increasing severity:
//
//   - LogLevelDebug: detailed debugging information
//   - LogLevelInfo: general informational messages
//   - LogLevelWarn: potentially problematic situations
//   - LogLevelError: failures that need attention
//   - LogLevelNone: disables all logging output
//
// # Example
//
//	logger := log.NewDefaultLogger(log.LogLevelInfo)
//	logger.Info("session %s advanced to %s", id, phase)
//	logger.Debug("planned queries: %v", queries)
//
// Or with golog:
//
//	glogger := golog.New()
//	logger := log.NewGologLogger(glogger)
//	logger.SetLevel(log.LogLevelDebug)
//
// # Package-level logging
//
// Libraries that construct components deep in a call tree can set one
// global logger instead of threading it everywhere:
//
//	log.SetDefaultLogger(log.NewGologLogger(golog.New()))
//	log.Info("pipeline ready")
//
// The DefaultLogger is safe for concurrent use; the standard library
// log.Logger synchronizes writes internally.
package log
