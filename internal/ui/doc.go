// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks a batch of track links through the pipeline:
//  1. [PlanningView] : Resolve every link while a spinner runs
//  2. [PlanView] : Browse the planned work items
//  3. [ConfirmView] : Confirm the download
//  4. [DownloadView] : Monitor real-time progress updates
//  5. [ResultView] : Display delivered counts and failures
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the [tasks.Engine], providing non-blocking status reporting during downloads.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
