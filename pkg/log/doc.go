// Package log provides Pulse's structured logging facade.
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context, backed by a formatter/outputs
// pipeline. Text and JSON formats are supported.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("server"), log.Str("tenant", "acme"))
//	l.Info("server started", log.Int("port", 8080))
//
// Use ApplyConfig to build a logger from a declarative Config, and
// RedirectStdLog to route standard library logs (e.g. Pebble's) through the
// facade.
package log
