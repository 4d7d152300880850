// Package mirror provides an embeddable TCP traffic mirror.
//
// A Mirror listens on one port, accepts a single inbound connection and
// replicates every byte it reads to a fixed set of downstream targets. Each
// target has its own connection worker that reconnects after failures and
// discards data that arrived while it was disconnected, so a slow or absent
// target never stalls the inbound stream or the other targets.
//
// # Basic Usage
//
//	cfg := mirror.Config{
//	    Port:    9000,
//	    Targets: []string{"10.0.0.5:9000", "replay.internal:7000"},
//	}
//
//	m, err := mirror.New(cfg, mirror.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := m.Start(ctx); err != nil {
//	    log.Fatal(err) // e.g. ErrListen when the port is taken
//	}
//
//	<-m.Done()
//
// # Lifecycle States
//
// A Mirror moves through [StateIdle], [StateListening], [StateMirroring],
// [StateStopping] and finally [StateStopped] or [StateCrashed]. It ends on
// its own when the inbound peer closes the stream, or when [Mirror.Stop] is
// called or the Start context is cancelled.
//
// # Delivery Guarantees
//
// While a target is connected it receives chunks in the order they were read.
// Chunks queued while a target is unreachable are dropped. Targets never see
// each other's failures.
//
// # Metrics and Events
//
// Per-chunk metrics are reported through a [Recorder] set with
// [WithRecorder]. Lifecycle transitions and per-target connection changes are
// delivered to an [EventHandler] set with [WithEventHandler].
package mirror
