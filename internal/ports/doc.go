// Package ports defines the interfaces that connect the mirror core to its
// collaborators.
//
//   - [Recorder]: the metrics sink, called once per inbound chunk
//   - [Dialer]: opens downstream connections, swappable in tests
//   - [Logger]: structured logging, see pkg/log
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters (internal/adapters) provide the Prometheus and zerolog
// implementations.
package ports
