// Package logger provides structured logging for tailpipe using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers carrying the standard pipeline fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("source")
//	log.Info("line delivered", logger.Fields(logger.FieldOffset, 128))
package logger
