package tasks

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/shared"
)

// DefaultExtension is appended to planned filenames when none is configured.
const DefaultExtension = "ogg"

// Failure records a link or item that could not be processed.
type Failure struct {
	Line  int    // 1-based input line, 0 for failures after planning
	Input string // raw link or item title
	Err   error
}

// PlanReport summarizes one pass of the [Planner] over its input.
type PlanReport struct {
	Lines    int       // non-blank lines read
	Planned  int       // work items emitted
	Skipped  []string  // output paths that already existed
	Failures []Failure // only populated when continuing on error
}

// PlannerOpts configures a [Planner].
type PlannerOpts struct {
	OutputDir       string
	Extension       string
	ContinueOnError bool
}

// Planner builds the work list from a stream of links.
//
// The output directory is the only dedup ledger: a link whose computed path already exists is skipped.
// Links are not deduplicated against each other.
type Planner struct {
	resolver        *Resolver
	outputDir       string
	extension       string
	continueOnError bool
	logger          *log.Logger
}

// NewPlanner creates a Planner backed by resolver.
func NewPlanner(resolver *Resolver, opts PlannerOpts, logger *log.Logger) *Planner {
	ext := strings.TrimPrefix(opts.Extension, ".")
	if ext == "" {
		ext = DefaultExtension
	}
	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	if logger == nil {
		logger = resolver.logger
	}
	return &Planner{
		resolver:        resolver,
		outputDir:       dir,
		extension:       ext,
		continueOnError: opts.ContinueOnError,
		logger:          logger,
	}
}

// Filename builds the unsanitized output name "<artists> - <title> [<id>].<ext>".
func Filename(artists []string, title string, id models.ID, ext string) string {
	return fmt.Sprintf("%s - %s [%s].%s", strings.Join(artists, ", "), title, id.Token(), ext)
}

// Plan reads lines once, in order, and returns the work items that still need fetching.
//
// Blank lines are ignored. Unless ContinueOnError is set the first failing line aborts the plan and
// no items are returned.
func (p *Planner) Plan(ctx context.Context, lines io.Reader, progress chan<- ProgressUpdate) ([]models.WorkItem, *PlanReport, error) {
	report := &PlanReport{}
	var items []models.WorkItem

	scanner := bufio.NewScanner(lines)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		link := strings.TrimSpace(scanner.Text())
		if link == "" {
			continue
		}
		report.Lines++

		sendProgress(progress, resolvingUpdate(report.Lines, link))

		item, err := p.planLine(ctx, link)
		if err != nil {
			err = fmt.Errorf("line %d: %w", lineNo, err)
			if !p.continueOnError {
				return nil, report, err
			}
			p.logger.Error("skipping link", "line", lineNo, "link", link, "err", err)
			report.Failures = append(report.Failures, Failure{Line: lineNo, Input: link, Err: err})
			sendProgress(progress, failedUpdate(report.Lines, 0, link, err))
			continue
		}

		if _, err := os.Stat(item.Path); err == nil {
			p.logger.Info("already downloaded", "file", item.Filename)
			report.Skipped = append(report.Skipped, item.Path)
			sendProgress(progress, skippedUpdate(report.Lines, item))
			continue
		}

		items = append(items, *item)
		report.Planned++
	}

	if err := scanner.Err(); err != nil {
		return nil, report, fmt.Errorf("%w: cannot read links: %w", shared.ErrInvalidInput, err)
	}

	sendProgress(progress, plannedUpdate(report))
	return items, report, nil
}

func (p *Planner) planLine(ctx context.Context, link string) (*models.WorkItem, error) {
	id, err := ExtractID(link)
	if err != nil {
		return nil, err
	}

	track, err := p.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	artists, err := p.resolver.ResolveArtists(ctx, track)
	if err != nil {
		return nil, err
	}

	album, err := p.resolver.ResolveAlbumName(ctx, track)
	if err != nil {
		return nil, err
	}

	name := shared.SanitizeFilename(Filename(artists, track.Name, id, p.extension))
	return &models.WorkItem{
		ID:       id,
		Track:    track,
		Artists:  artists,
		Album:    album,
		Filename: name,
		Path:     filepath.Join(p.outputDir, name),
	}, nil
}
