package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/shared"
)

// commandContext is swapped out in tests.
var commandContext = exec.CommandContext

// Sink consumes decrypted payloads. A batch run uses exactly one sink.
type Sink interface {
	Deliver(ctx context.Context, payload []byte, item models.WorkItem) error
	Name() string
}

// FileSink writes each payload to its planned output path.
//
// Payloads are written to a temporary file in the same directory and renamed into place, so a failed
// write never leaves a file at the planned path.
type FileSink struct{}

func (FileSink) Name() string { return "file" }

// Deliver implements [Sink].
func (FileSink) Deliver(ctx context.Context, payload []byte, item models.WorkItem) error {
	dir := filepath.Dir(item.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrDelivery, err)
	}

	tmp, err := os.CreateTemp(dir, ".trackdl-*.part")
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrDelivery, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: cannot write %s: %w", shared.ErrDelivery, item.Filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: cannot write %s: %w", shared.ErrDelivery, item.Filename, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrDelivery, err)
	}
	if err := os.Rename(tmp.Name(), item.Path); err != nil {
		return fmt.Errorf("%w: cannot move %s into place: %w", shared.ErrDelivery, item.Filename, err)
	}
	return nil
}

// ProcessSink pipes each payload to a helper program.
//
// The helper is called as `program <id> <title> <album> <artist>...` with the payload on stdin and
// must exit with status 0.
type ProcessSink struct {
	Program string
	Stdout  io.Writer // defaults to os.Stdout
	Stderr  io.Writer // defaults to os.Stderr
}

func (s *ProcessSink) Name() string { return "process" }

// HelperArgs returns the helper argument vector for item.
func HelperArgs(item models.WorkItem) []string {
	args := []string{item.ID.Base62(), item.Title(), item.Album}
	return append(args, item.Artists...)
}

// Deliver implements [Sink].
func (s *ProcessSink) Deliver(ctx context.Context, payload []byte, item models.WorkItem) error {
	cmd := commandContext(ctx, s.Program, HelperArgs(item)...) //nolint:gosec
	cmd.Stdout = s.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = s.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrDelivery, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: cannot start helper %s: %w", shared.ErrDelivery, s.Program, err)
	}

	_, writeErr := stdin.Write(payload)
	if closeErr := stdin.Close(); writeErr == nil {
		writeErr = closeErr
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s exited with status %d", shared.ErrHelperFailed, s.Program, exitErr.ExitCode())
		}
		return fmt.Errorf("%w: helper %s: %w", shared.ErrDelivery, s.Program, err)
	}
	if writeErr != nil {
		return fmt.Errorf("%w: cannot write payload to helper %s: %w", shared.ErrDelivery, s.Program, writeErr)
	}
	return nil
}
