package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/trackdl/internal/reactor"
	"github.com/desertthunder/trackdl/internal/services"
	"github.com/desertthunder/trackdl/internal/shared"
)

// SessionFactory opens a catalog session driven by r.
type SessionFactory func(ctx context.Context, r *reactor.Reactor, config *shared.Config, logger *log.Logger) (services.Session, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	logger  *log.Logger
	output  io.Writer
	errOut  io.Writer
	input   io.Reader
	connect SessionFactory
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config // skips loading the config file when set
	Logger  *log.Logger
	Output  io.Writer
	ErrOut  io.Writer // helper stderr
	Input   io.Reader // links when neither arguments nor --file are given
	Connect SessionFactory
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOut == nil {
		opts.ErrOut = os.Stderr
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Connect == nil {
		opts.Connect = connectCatalog
	}

	return &Runner{
		config:  opts.Config,
		logger:  opts.Logger,
		output:  opts.Output,
		errOut:  opts.ErrOut,
		input:   opts.Input,
		connect: opts.Connect,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		downloadCommand, planCommand, historyCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by subsequent actions.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// connectCatalog authenticates against the configured catalog, driving r until the session is ready.
func connectCatalog(ctx context.Context, r *reactor.Reactor, config *shared.Config, logger *log.Logger) (services.Session, error) {
	future := services.Connect(ctx, r, config.Catalog, config.Credentials, logger)
	session, err := reactor.Run(ctx, r, future, config.Catalog.PollInterval())
	if err != nil {
		return nil, err
	}
	return session, nil
}

// loadConfig returns the runner's config or loads the --config file, then applies flag overrides.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	var config *shared.Config
	if r.config != nil {
		copied := *r.config
		config = &copied
	} else {
		loaded, err := shared.LoadConfigOrDefault(cmd.String("config"))
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if cmd.IsSet("output") {
		config.Output.Directory = cmd.String("output")
	}
	if cmd.IsSet("helper") {
		config.Output.Helper = cmd.String("helper")
	}
	if cmd.IsSet("username") {
		config.Credentials.Username = cmd.String("username")
	}
	if cmd.IsSet("password") {
		config.Credentials.Password = cmd.String("password")
	}
	if cmd.IsSet("continue-on-error") {
		config.Output.ContinueOnError = cmd.Bool("continue-on-error")
	}
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return config, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
