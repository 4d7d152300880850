// Package log provides the logging abstraction used by tcpmirror components.
//
// Components depend on the [Logger] interface only. [ZerologAdapter] is the
// production implementation and writes console-formatted lines to stderr;
// [NoopLogger] discards everything and is meant for tests and embedding.
//
//	logger := log.NewZerologAdapter()
//	logger.With(log.String("target", "10.0.0.7:9000")).Info("connected")
package log
