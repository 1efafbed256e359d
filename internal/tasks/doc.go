// Package tasks implements the track download pipeline with real-time progress reporting.
//
// # Pipeline
//
// [Engine.Run] processes a list of track links in two passes:
//
//  1. Planning ([Planner.Plan])
//     - [ExtractID] pulls the identifier out of each link
//     - [Resolver.Resolve] looks the track up, falling back to the first available alternative
//     - artists and album are resolved and the output filename computed
//     - links whose output file already exists are skipped
//
//  2. Delivery, one item at a time ([Engine.Execute], also usable on a plan from [Engine.Plan])
//     - [SelectFormat] picks the best format from [FormatTiers]
//     - [Fetcher.Fetch] requests the key, drains the file stream, decrypts and strips the header
//     - the payload goes to the run's single [Sink] ([FileSink] or [ProcessSink])
//
// # Reactor
//
// Every session call is a future driven on the calling goroutine with [reactor.Run]. Draining a file
// stream is the one blocking operation: it runs on a worker goroutine while the calling goroutine keeps
// turning the reactor that feeds the stream.
//
// # Failure Policy
//
// By default the first failure of any kind stops the run. With ContinueOnError failing links and items
// are collected in [RunResult.Failures] and the run ends with [shared.ErrBatchIncomplete].
//
// # Progress Reporting
//
// Operations use non-blocking channels for progress updates. The [ProgressUpdate] struct contains
// phase, step counters, messages, and optional data for advanced UI rendering.
//
// # History
//
// The optional [Recorder] stores a [models.Download] for each delivered item. Errors are logged and
// ignored so a broken history database never stops a download.
package tasks
