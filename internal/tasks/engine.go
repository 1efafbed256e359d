package tasks

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/reactor"
	"github.com/desertthunder/trackdl/internal/services"
	"github.com/desertthunder/trackdl/internal/shared"
)

// Recorder persists a record of every delivered item. Implementations should not block for long;
// errors are logged and otherwise ignored.
type Recorder interface {
	RecordDownload(d *models.Download) error
}

// ItemResult is the outcome of processing one work item.
type ItemResult struct {
	Item   models.WorkItem
	Format models.FileFormat
	Bytes  int64
	Err    error
}

// RunResult summarizes a batch run.
type RunResult struct {
	Plan      *PlanReport
	Items     []ItemResult // processed items, in order
	Planned   int
	Skipped   int
	Delivered int
	Failed    int // failed lines and items
	Bytes     int64
	Failures  []Failure
	Elapsed   time.Duration
}

// EngineOpts configures an [Engine].
type EngineOpts struct {
	OutputDir       string
	Extension       string
	ContinueOnError bool
	PollInterval    time.Duration // reactor tick, defaults to [reactor.DefaultTick]
	Logger          *log.Logger
	Recorder        Recorder // optional
}

// Engine runs the whole pipeline over one session and one reactor.
//
// Items are handled strictly one after another: plan every link, then select, fetch and deliver each
// planned item in input order.
type Engine struct {
	session         services.Session
	reactor         *reactor.Reactor
	logger          *log.Logger
	recorder        Recorder
	continueOnError bool

	resolver *Resolver
	planner  *Planner
	fetcher  *Fetcher
}

// NewEngine wires the pipeline stages around session and r.
func NewEngine(session services.Session, r *reactor.Reactor, opts EngineOpts) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	tick := opts.PollInterval
	if tick <= 0 {
		tick = reactor.DefaultTick
	}

	resolver := NewResolver(session, r, tick, logger)
	return &Engine{
		session:         session,
		reactor:         r,
		logger:          logger,
		recorder:        opts.Recorder,
		continueOnError: opts.ContinueOnError,
		resolver:        resolver,
		planner: NewPlanner(resolver, PlannerOpts{
			OutputDir:       opts.OutputDir,
			Extension:       opts.Extension,
			ContinueOnError: opts.ContinueOnError,
		}, logger),
		fetcher: NewFetcher(session, r, tick, logger),
	}
}

// Resolver returns the engine's track resolver.
func (e *Engine) Resolver() *Resolver { return e.resolver }

// Plan builds the work list without fetching anything.
func (e *Engine) Plan(ctx context.Context, lines io.Reader, progress chan<- ProgressUpdate) ([]models.WorkItem, *PlanReport, error) {
	return e.planner.Plan(ctx, lines, progress)
}

// Run plans lines and delivers every planned item through sink.
//
// Without ContinueOnError the first failure stops the run and is returned. With it, failures are
// collected in the result and the run returns [shared.ErrBatchIncomplete] once all items were tried.
func (e *Engine) Run(ctx context.Context, lines io.Reader, sink Sink, progress chan<- ProgressUpdate) (*RunResult, error) {
	start := time.Now()

	items, report, err := e.planner.Plan(ctx, lines, progress)
	if err != nil {
		result := newRunResult(report)
		result.Elapsed = time.Since(start)
		sendProgress(progress, failedUpdate(0, 0, "plan", err))
		return result, err
	}

	result, err := e.Execute(ctx, items, report, sink, progress)
	result.Elapsed = time.Since(start)
	return result, err
}

// Execute selects, fetches and delivers items produced by [Engine.Plan], in order.
//
// report may be nil; when given, its skipped lines and failures are carried into the result.
func (e *Engine) Execute(ctx context.Context, items []models.WorkItem, report *PlanReport, sink Sink, progress chan<- ProgressUpdate) (*RunResult, error) {
	start := time.Now()
	result := newRunResult(report)
	defer func() { result.Elapsed = time.Since(start) }()

	result.Planned = len(items)
	total := len(items)
	for i, item := range items {
		res := e.process(ctx, item, sink, i+1, total, progress)
		result.Items = append(result.Items, res)

		if res.Err != nil {
			result.Failed++
			result.Failures = append(result.Failures, Failure{Input: item.Filename, Err: res.Err})
			sendProgress(progress, failedUpdate(i+1, total, item.Filename, res.Err))
			if !e.continueOnError {
				return result, res.Err
			}
			e.logger.Error("item failed", "file", item.Filename, "err", res.Err)
			continue
		}

		result.Delivered++
		result.Bytes += res.Bytes
		sendProgress(progress, deliveredUpdate(i+1, total, res))
	}

	sendProgress(progress, completedUpdate(result))
	if result.Failed > 0 {
		return result, fmt.Errorf("%w: %d failed, %d delivered", shared.ErrBatchIncomplete, result.Failed, result.Delivered)
	}
	return result, nil
}

func newRunResult(report *PlanReport) *RunResult {
	result := &RunResult{Plan: report}
	if report != nil {
		result.Skipped = len(report.Skipped)
		result.Failures = append(result.Failures, report.Failures...)
		result.Failed = len(report.Failures)
	}
	return result
}

func (e *Engine) process(ctx context.Context, item models.WorkItem, sink Sink, step, total int, progress chan<- ProgressUpdate) ItemResult {
	res := ItemResult{Item: item}

	rep, err := SelectFormat(item.Track.Files)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", item.Filename, err)
		return res
	}
	res.Format = rep.Format

	sendProgress(progress, fetchingUpdate(step, total, item, rep.Format))
	e.logger.Info("fetching", "file", item.Filename, "format", rep.Format)

	payload, err := e.fetcher.Fetch(ctx, item.Track.ID, rep)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", item.Filename, err)
		return res
	}

	if err := sink.Deliver(ctx, payload, item); err != nil {
		res.Err = fmt.Errorf("%s: %w", item.Filename, err)
		return res
	}
	res.Bytes = int64(len(payload))
	e.logger.Info("delivered", "file", item.Filename, "sink", sink.Name(), "size", humanize.IBytes(uint64(res.Bytes)))

	if e.recorder != nil {
		if err := e.recorder.RecordDownload(models.NewDownload(item, rep.Format, sink.Name(), res.Bytes)); err != nil {
			e.logger.Warn("cannot record download", "file", item.Filename, "err", err)
		}
	}
	return res
}
