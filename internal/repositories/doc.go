// Package repositories implements SQLite persistence for the download history.
//
// [DownloadRepository] stores one row per delivered track with atomic sequence generation for
// human-readable ordering. Rows are soft deleted via deleted_at timestamps and deleted rows are
// excluded from queries by default.
//
// The history is an audit log. Planning never reads it: whether a track still needs downloading is
// decided by the output directory alone. [HistoryRecorder] adapts the repository to the pipeline's
// optional recorder hook.
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
