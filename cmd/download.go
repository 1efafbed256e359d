package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/trackdl/internal/formatter"
	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/reactor"
	"github.com/desertthunder/trackdl/internal/repositories"
	"github.com/desertthunder/trackdl/internal/services"
	"github.com/desertthunder/trackdl/internal/shared"
	"github.com/desertthunder/trackdl/internal/tasks"
)

// reactorBuffer bounds callbacks queued on the reactor before Post blocks.
const reactorBuffer = 64

// pipeline bundles what a download or plan run needs and releases it in Close.
type pipeline struct {
	config  *shared.Config
	reactor *reactor.Reactor
	session services.Session
	engine  *tasks.Engine
	db      *sql.DB
	unlock  func() error
}

func (p *pipeline) Close() {
	if p.session != nil {
		p.session.Close()
	}
	if p.reactor != nil {
		p.reactor.Close()
	}
	if p.db != nil {
		p.db.Close()
	}
	if p.unlock != nil {
		p.unlock()
	}
}

// Download resolves every link, then fetches, decrypts and delivers each planned track in order.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	links, err := r.readLinks(cmd)
	if err != nil {
		return err
	}

	useTUI := cmd.Bool("tui")
	if useTUI {
		restore, err := r.useFileLogger(config)
		if err != nil {
			return err
		}
		defer restore()
	}

	p, err := r.openPipeline(ctx, config, true)
	if err != nil {
		return err
	}
	defer p.Close()

	if useTUI {
		return r.runTUI(ctx, p, links)
	}

	sink := r.newSink(config, r.output, r.errOut)
	r.logger.Info("starting batch", "sink", sink.Name(), "output", config.Output.Directory)

	progressCh := make(chan tasks.ProgressUpdate, 64)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progressCh {
			switch update.Phase {
			case tasks.Resolving:
				r.logger.Debug(update.Message)
			case tasks.Planned:
				r.writePlain("%s\n\n", update.Message)
			case tasks.Completed: // summarized below
			default:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	result, runErr := p.engine.Run(ctx, strings.NewReader(links), sink, progressCh)
	close(progressCh)
	<-printed

	if result != nil && result.Plan != nil {
		if err := r.writeBytes(formatter.SummaryToText(result)); err != nil {
			return err
		}
	}
	return runErr
}

// Plan runs resolution only and lists the tracks a download would fetch.
func (r *Runner) Plan(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	links, err := r.readLinks(cmd)
	if err != nil {
		return err
	}

	p, err := r.openPipeline(ctx, config, false)
	if err != nil {
		return err
	}
	defer p.Close()

	items, report, err := p.engine.Plan(ctx, strings.NewReader(links), nil)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(planView(items, report), true)
	}
	return r.writeBytes(formatter.PlanToText(items, report))
}

// openPipeline validates config, locks the output directory, connects and wires the engine.
// History is recorded only when record is set and a database path is configured.
func (r *Runner) openPipeline(ctx context.Context, config *shared.Config, record bool) (*pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &pipeline{config: config}
	unlock, err := shared.LockDir(config.Output.Directory)
	if err != nil {
		return nil, err
	}
	p.unlock = unlock

	p.reactor = reactor.New(reactorBuffer)
	r.logger.Info("connecting", "catalog", config.Catalog.BaseURL, "user", config.Credentials.Username)
	session, err := r.connect(ctx, p.reactor, config, r.logger)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.session = session

	opts := tasks.EngineOpts{
		OutputDir:       config.Output.Directory,
		Extension:       config.Output.Extension,
		ContinueOnError: config.Output.ContinueOnError,
		PollInterval:    config.Catalog.PollInterval(),
		Logger:          r.logger,
	}

	if record && config.Database.Path != "" {
		db, err := shared.OpenHistory(config.Database)
		if err != nil {
			r.logger.Warn("download history disabled", "err", err)
		} else {
			p.db = db
			opts.Recorder = repositories.NewHistoryRecorder(repositories.NewDownloadRepository(db))
		}
	}

	p.engine = tasks.NewEngine(session, p.reactor, opts)
	return p, nil
}

// newSink returns the helper sink when a helper program is configured and the file sink otherwise.
func (r *Runner) newSink(config *shared.Config, stdout, stderr io.Writer) tasks.Sink {
	if config.Output.Helper != "" {
		return &tasks.ProcessSink{Program: config.Output.Helper, Stdout: stdout, Stderr: stderr}
	}
	return tasks.FileSink{}
}

// readLinks collects links from arguments, --file or the runner's input, in that order of preference.
func (r *Runner) readLinks(cmd *cli.Command) (string, error) {
	if args := cmd.Args().Slice(); len(args) > 0 {
		return strings.Join(args, "\n"), nil
	}

	var source io.Reader = r.input
	if path := cmd.String("file"); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
		}
		defer f.Close()
		source = f
	}

	data, err := io.ReadAll(source)
	if err != nil {
		return "", fmt.Errorf("%w: cannot read links: %w", shared.ErrInvalidInput, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("%w: no links given", shared.ErrMissingArgument)
	}
	return string(data), nil
}

type plannedTrack struct {
	ID         string   `json:"id"`
	ResolvedID string   `json:"resolved_id"`
	Title      string   `json:"title"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	Filename   string   `json:"filename"`
	Path       string   `json:"path"`
}

type planFailure struct {
	Line  int    `json:"line"`
	Input string `json:"input"`
	Error string `json:"error"`
}

type planOutput struct {
	Planned  []plannedTrack `json:"planned"`
	Skipped  []string       `json:"skipped"`
	Failures []planFailure  `json:"failures"`
}

func planView(items []models.WorkItem, report *tasks.PlanReport) planOutput {
	out := planOutput{Planned: []plannedTrack{}, Skipped: []string{}, Failures: []planFailure{}}
	for _, item := range items {
		out.Planned = append(out.Planned, plannedTrack{
			ID:         item.ID.Token(),
			ResolvedID: item.Track.ID.Token(),
			Title:      item.Title(),
			Artists:    item.Artists,
			Album:      item.Album,
			Filename:   item.Filename,
			Path:       item.Path,
		})
	}
	if report != nil {
		out.Skipped = append(out.Skipped, report.Skipped...)
		for _, f := range report.Failures {
			out.Failures = append(out.Failures, planFailure{Line: f.Line, Input: f.Input, Error: f.Err.Error()})
		}
	}
	return out
}
