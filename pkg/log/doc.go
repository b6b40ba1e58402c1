// Package log provides the structured logging abstraction used by archivist.
//
// Components log through the [Logger] interface so the recording core does not
// depend on a concrete logging library. Two implementations ship with the
// package: a zerolog adapter for the CLI and a no-op logger for library
// embedding and tests.
//
// # Usage
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//	logger.Info("snapshot stored", log.Uint64("seq", 3), log.Int("bytes", 1024))
//
// Or discard everything:
//
//	logger := log.NewNoopLogger()
//
// # Custom Loggers
//
// Any type with Debug, Info, Warn and Error methods taking a message and a
// variadic list of [Field] values satisfies [Logger].
package log
