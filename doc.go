// Package pybridge drives code running inside a long-lived interpreter
// subprocess, invoking named methods and receiving either a single value,
// a stream of values, or an error, all multiplexed over one pair of pipes
// as newline-delimited JSON.
//
// # Basic Usage
//
// Declare a contract, open a bridge, and invoke:
//
//	contract, err := pybridge.NewContract(map[string]pybridge.MethodSpec{
//	    "row_count": {Returns: &pybridge.Schema{Type: "integer"}},
//	    "scan_rows": {Stream: true, Returns: &pybridge.Schema{Type: "object"}},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	bridge := pybridge.New(
//	    pybridge.WithBootstrap("bootstrap.py"),
//	)
//	defer bridge.Close()
//
//	reports, err := bridge.Module(ctx, "analytics.reports", contract)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	count, err := reports.Invoke(ctx, "row_count", "2026-08")
//
// Generator-backed methods are consumed as streams:
//
//	for row, err := range reports.Stream(ctx, "scan_rows", "2026-08") {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    // process row
//	}
//
// The bridge keeps one warm subprocess per module name; repeated Module
// calls reuse it. Concurrent calls on one module are legal and their
// responses are demultiplexed by correlation id.
//
// # Logging
//
// For detailed operation tracking, use WithLogger:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	bridge := pybridge.New(pybridge.WithLogger(logger))
//
// # Error Handling
//
// The package provides typed errors for different failure scenarios:
//
//	count, err := reports.Invoke(ctx, "row_count")
//	if err != nil {
//	    if remoteErr, ok := errors.AsType[*pybridge.RemoteExecutionError](err); ok {
//	        log.Fatalf("interpreter raised:\n%s", remoteErr.Trace)
//	    }
//	    if _, ok := errors.AsType[*pybridge.SpawnError](err); ok {
//	        log.Fatal("interpreter could not be started")
//	    }
//	    log.Fatal(err)
//	}
//
// # Requirements
//
// A Python 3 interpreter must be installed and reachable, plus a bootstrap
// script speaking the line protocol (one JSON object per line; see
// internal/wire). Use WithInterpPath to point at a specific binary.
package pybridge
