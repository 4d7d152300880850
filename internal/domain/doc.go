// Package domain contains the core value types of the traffic mirror.
//
// This package has no dependencies on infrastructure concerns (sockets,
// logging, metrics) and contains only plain data and its invariants.
//
// # Types
//
//   - [Chunk]: one immutable unit of bytes read from the inbound stream
//   - [Target]: a downstream host/port that receives a full copy of the stream
//   - [ConnectError]: a categorized downstream connect failure
package domain
