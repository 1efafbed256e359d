package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/trackdl/internal/formatter"
	"github.com/desertthunder/trackdl/internal/shared"
	"github.com/desertthunder/trackdl/internal/ui"
)

// useFileLogger sends logs to a file in the output directory while the TUI owns the terminal.
// The returned function restores the previous logger.
func (r *Runner) useFileLogger(config *shared.Config) (func(), error) {
	logPath := filepath.Join(config.Output.Directory, ".trackdl-tui.log")
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	previous := r.logger
	r.SetLogger(fileLogger)
	return func() { r.SetLogger(previous) }, nil
}

// runTUI hands the terminal to the interactive view for the whole batch and prints the summary once it exits.
func (r *Runner) runTUI(ctx context.Context, p *pipeline, links string) error {
	sink := r.newSink(p.config, io.Discard, io.Discard)
	model := ui.NewModel(ctx, p.engine, sink, links)
	program := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if result := model.Result(); result != nil {
		if err := r.writeBytes(formatter.SummaryToText(result)); err != nil {
			return err
		}
	}
	return model.Err()
}
