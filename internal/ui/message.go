package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlanned MsgKind = iota
	MsgProgressUpdate
	MsgRunComplete
)

type plannedData struct {
	items  []models.WorkItem
	report *tasks.PlanReport
	err    error
}

type runData struct {
	result *tasks.RunResult
	err    error
}

// plannedMsg is the constructor for [MsgPlanned]
func plannedMsg(items []models.WorkItem, report *tasks.PlanReport, err error) Msg {
	return Msg{kind: MsgPlanned, data: plannedData{items, report, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// runCompleteMsg is the constructor for [MsgRunComplete]
func runCompleteMsg(result *tasks.RunResult, err error) Msg {
	return Msg{kind: MsgRunComplete, data: runData{result, err}}
}
