// Package ports defines the interfaces that connect the recording core to
// infrastructure adapters.
//
// # Port Interfaces
//
//   - [Fetcher]: retrieves one raw snapshot of the upstream resource
//   - [Store]: persists snapshots durably under a retention ceiling
//   - [Clock]: the sole time source of the recording loop
//   - [ManifestRepository]: persists the per-session manifest
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters in internal/adapters implement them with the file system and
// net/http, and tests substitute in-memory fakes.
package ports
