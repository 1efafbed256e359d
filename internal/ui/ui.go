package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/desertthunder/trackdl/internal/models"
	"github.com/desertthunder/trackdl/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlanningView ViewState = iota
	PlanView
	ConfirmView
	DownloadView
	ResultView
)

// recentLimit caps the delivered/failed lines shown while downloading.
const recentLimit = 5

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       *tasks.Engine
	sink         tasks.Sink
	input        string
	width        int
	height       int
	spinner      spinner.Model
	bar          progress.Model
	itemList     list.Model
	items        []models.WorkItem
	report       *tasks.PlanReport
	progressChan chan tasks.ProgressUpdate
	done         chan runData
	progress     tasks.ProgressUpdate
	recent       []string
	result       *tasks.RunResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a TUI model that plans input (one link per line) and delivers through sink.
func NewModel(ctx context.Context, engine *tasks.Engine, sink tasks.Sink, input string) *Model {
	return &Model{
		ctx:     ctx,
		view:    PlanningView,
		engine:  engine,
		sink:    sink,
		input:   input,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.title.UnsetMarginBottom())),
		bar:     progress.New(progress.WithDefaultGradient()),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Result returns the outcome of the download, nil until it finished.
func (m *Model) Result() *tasks.RunResult { return m.result }

// Err returns the planning or download error, if any.
func (m *Model) Err() error { return m.err }

// Init starts planning.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.plan())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(msg.Width-4, 80)
		if m.view == PlanView {
			m.itemList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case PlanningView, DownloadView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case PlanView:
			return m.handlePlanKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == PlanView {
		var cmd tea.Cmd
		m.itemList, cmd = m.itemList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlanned:
		data := msg.data.(plannedData)
		m.items = data.items
		m.report = data.report
		if data.err != nil {
			m.err = data.err
			m.view = ResultView
			return m, nil
		}
		m.itemList = newWorkList(data.items, max(m.width-4, 0), max(m.height-8, 0))
		m.view = PlanView
		return m, nil

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.progress = update
		if update.Phase == tasks.Delivered || update.Phase == tasks.Failed {
			m.recent = append(m.recent, update.Message)
			if len(m.recent) > recentLimit {
				m.recent = m.recent[len(m.recent)-recentLimit:]
			}
		}
		return m, m.waitForProgress()

	case MsgRunComplete:
		data := msg.data.(runData)
		m.result = data.result
		m.err = data.err
		m.progressChan = nil
		m.done = nil
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case PlanningView:
		return m.renderPlanning()
	case PlanView:
		return m.renderPlan()
	case ConfirmView:
		return m.renderConfirm()
	case DownloadView:
		return m.renderDownload()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlanKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.itemList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.itemList, cmd = m.itemList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if len(m.items) > 0 {
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.itemList, cmd = m.itemList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = PlanView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		m.view = DownloadView
		m.recent = nil
		return m, tea.Batch(m.spinner.Tick, m.startDownload())
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = PlanningView
		m.items = nil
		m.report = nil
		m.result = nil
		m.err = nil
		m.progress = tasks.ProgressUpdate{}
		return m, tea.Batch(m.spinner.Tick, m.plan())
	}
	return m, nil
}

func (m *Model) plan() tea.Cmd {
	return func() tea.Msg {
		items, report, err := m.engine.Plan(m.ctx, strings.NewReader(m.input), nil)
		return plannedMsg(items, report, err)
	}
}

func (m *Model) startDownload() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 64)
	m.done = make(chan runData, 1)

	items, report, sink := m.items, m.report, m.sink
	progressChan, done := m.progressChan, m.done
	go func() {
		result, err := m.engine.Execute(m.ctx, items, report, sink, progressChan)
		done <- runData{result: result, err: err}
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan, done := m.progressChan, m.done
	return func() tea.Msg {
		if progressChan == nil {
			return runCompleteMsg(nil, nil)
		}

		update, ok := <-progressChan
		if !ok {
			data := <-done
			return runCompleteMsg(data.result, data.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderPlanning() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s Resolving tracks...\n\n%s", m.spinner.View(), helpView)
}

func (m *Model) renderPlan() string {
	var notes []string
	if m.report != nil {
		if n := len(m.report.Skipped); n > 0 {
			notes = append(notes, styles.help.Render(fmt.Sprintf("%d already downloaded", n)))
		}
		if n := len(m.report.Failures); n > 0 {
			notes = append(notes, styles.warn.Render(fmt.Sprintf("%d links could not be resolved", n)))
		}
	}

	if len(m.items) == 0 {
		notes = append(notes, "Nothing to download.")
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
		return fmt.Sprintf("%s\n%s\n\n%s", styles.title.Render("Planned Tracks"), strings.Join(notes, "\n"), helpView)
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.quit})
	out := m.itemList.View()
	if len(notes) > 0 {
		out += "\n" + strings.Join(notes, "\n")
	}
	return fmt.Sprintf("%s\n\n%s", out, helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Download %d tracks through the %s sink?", len(m.items), m.sink.Name()))

	var b strings.Builder
	for i, item := range m.items {
		if i == recentLimit {
			fmt.Fprintf(&b, "  … and %d more\n", len(m.items)-recentLimit)
			break
		}
		fmt.Fprintf(&b, "  • %s\n", item.Filename)
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, b.String(), helpView)
}

func (m *Model) renderDownload() string {
	title := styles.title.Render("Downloading")

	var percent float64
	if total := len(m.items); total > 0 && (m.progress.Phase == tasks.Delivered || m.progress.Phase == tasks.Failed) {
		percent = float64(m.progress.Step) / float64(total)
	} else if total > 0 && m.progress.Step > 0 {
		percent = float64(m.progress.Step-1) / float64(total)
	}

	status := m.progress.Message
	if status == "" {
		status = "Starting..."
	}

	var recent string
	for _, line := range m.recent {
		recent += "\n" + styles.help.Render(line)
	}

	return fmt.Sprintf("%s\n%s\n\n%s %s%s", title, m.bar.ViewAs(percent), m.spinner.View(), status, recent)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	if m.result == nil {
		msg := "No result available"
		if m.err != nil {
			msg = fmt.Sprintf("Failed: %v", m.err)
		}
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(msg), helpView)
	}

	var title string
	if m.err != nil {
		title = styles.err.Render(fmt.Sprintf("✗ Download stopped: %v", m.err))
	} else {
		title = styles.ok.Render("✓ Download Complete!")
	}

	info := fmt.Sprintf(
		"\nDelivered: %d/%d (%s)\nAlready downloaded: %d",
		m.result.Delivered,
		m.result.Planned,
		humanize.IBytes(uint64(m.result.Bytes)),
		m.result.Skipped,
	)

	var failed string
	if len(m.result.Failures) > 0 {
		failed = fmt.Sprintf("\n\n%s", styles.warn.Render(fmt.Sprintf("%d failures:", len(m.result.Failures))))
		for _, f := range m.result.Failures {
			failed += fmt.Sprintf("\n  • %s: %v", f.Input, f.Err)
		}
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}
