// Package domain contains the core entities and value objects of the recorder.
//
// This package is the innermost layer. It has no dependencies on
// infrastructure concerns (HTTP, file system, logging) and holds only the
// values the recording loop reasons about.
//
// # Entities
//
//   - [Snapshot]: one immutable captured payload with its sequence number and capture time
//   - [StoredID]: the stable identity a store assigns to a persisted snapshot
//   - [Summary]: the outcome of one recording session
//   - [StopReason]: why a session reached its terminal state
package domain
