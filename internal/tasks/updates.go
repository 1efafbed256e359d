package tasks

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/desertthunder/trackdl/internal/models"
)

// ProgressUpdate represents a progress event during a batch run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 while planning
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Resolving Phase = iota
	Skipped
	Planned
	Fetching
	Delivered
	Failed
	Completed
)

func (p Phase) String() string {
	switch p {
	case Resolving:
		return "resolving"
	case Skipped:
		return "skipped"
	case Planned:
		return "planned"
	case Fetching:
		return "fetching"
	case Delivered:
		return "delivered"
	case Failed:
		return "failed"
	case Completed:
		return "completed"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func resolvingUpdate(step int, link string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Resolving,
		Step:    step,
		Message: fmt.Sprintf("Resolving %s...", link),
	}
}

func skippedUpdate(step int, item *models.WorkItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Skipped,
		Step:    step,
		Message: fmt.Sprintf("%s - is already downloaded", item.Filename),
		Data:    item,
	}
}

func plannedUpdate(report *PlanReport) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Planned,
		Step:    report.Planned,
		Total:   report.Planned,
		Message: fmt.Sprintf("Planned %d tracks (%d already downloaded)", report.Planned, len(report.Skipped)),
		Data:    report,
	}
}

func fetchingUpdate(step, total int, item models.WorkItem, format models.FileFormat) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Fetching,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching %s (%s)...", step, total, item.Filename, format),
	}
}

func deliveredUpdate(step, total int, res ItemResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Delivered,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%s)", step, total, res.Item.Filename, humanize.IBytes(uint64(res.Bytes))),
		Data:    res,
	}
}

func failedUpdate(step, total int, name string, err error) ProgressUpdate {
	if total == 0 {
		return ProgressUpdate{
			Phase:   Failed,
			Step:    step,
			Message: fmt.Sprintf("✗ %s: %v", name, err),
		}
	}
	return ProgressUpdate{
		Phase:   Failed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}

func completedUpdate(result *RunResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Completed,
		Step:    result.Delivered,
		Total:   result.Planned,
		Message: fmt.Sprintf("Delivered %d of %d tracks (%s)", result.Delivered, result.Planned, humanize.IBytes(uint64(result.Bytes))),
		Data:    result,
	}
}
