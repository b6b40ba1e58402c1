// Package manifest describes recording sessions on disk.
//
// Every session directory carries a session.json manifest next to its
// snapshots. The recorder writes it when the session starts and again when it
// stops, always atomically, so readers such as `archivist list` never see a
// torn file.
//
// # Usage
//
//	repo := manifest.NewFileRepository(sessionDir)
//	m, err := repo.Load(ctx)
//
// Use [ScanDir] to enumerate every session below a storage root.
package manifest
