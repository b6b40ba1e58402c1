// Package archivist records periodic snapshots of a remote JSON resource,
// by default the VATSIM network data feed, for later playback.
//
// A [Recorder] fetches the resource on a fixed cadence, writes every payload
// atomically as its own file and keeps at most a configured number of
// snapshots. It stops when the ceiling is reached, when its context is
// cancelled, or on a fatal error, and reports the outcome as a [Summary].
//
// # Basic Usage
//
//	rec, err := archivist.New(archivist.Config{
//	    ResourceURL: "https://data.vatsim.net/v3/vatsim-data.json",
//	    StorageDir:  "/var/lib/archivist",
//	    Ceiling:     240,
//	    Interval:    15 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//
//	summary, err := rec.Run(ctx)
//	fmt.Println(summary.Reason, summary.Count, rec.SessionDir())
//
// # Storage Layout
//
// Each session writes into <StorageDir>/<session id>/. Snapshots are named
// snap-00000000.json, snap-00000001.json and so on; session.json describes the
// session and is rewritten when it stops.
//
// # Failure Handling
//
// With [FetchRecoverable] (the default) a failed fetch is logged and the next
// tick retries. With [FetchStrict] it ends the session with
// [ReasonFetchFatal]. A failed write always ends the session with
// [ReasonStoreFatal]. Cancellation is a normal stop and Run returns a nil
// error with [ReasonCancelled].
//
// # Lifecycle States
//
// A Recorder moves from [StateIdle] to [StateRunning] when Run is called and
// to [StateStopped] exactly once. Stopped is terminal; create a new Recorder
// to record another session.
package archivist
