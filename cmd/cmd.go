// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// pipelineFlags are shared by commands that resolve links against the catalog.
func pipelineFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "Read links from file, one per line (\"-\" for stdin)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output directory for downloaded tracks",
		},
		&cli.StringFlag{
			Name:    "username",
			Aliases: []string{"u"},
			Usage:   "Account username",
			Sources: cli.EnvVars("TRACKDL_USERNAME"),
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "Account password",
			Sources: cli.EnvVars("TRACKDL_PASSWORD"),
		},
		&cli.BoolFlag{
			Name:  "continue-on-error",
			Usage: "Skip failing links and tracks instead of stopping the batch",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
}

// downloadCommand resolves, fetches, decrypts and delivers every link
func downloadCommand(r *Runner) *cli.Command {
	flags := append(pipelineFlags(),
		&cli.StringFlag{
			Name:  "helper",
			Usage: "Pipe each decrypted track to this program instead of writing files",
		},
		&cli.BoolFlag{
			Name:  "tui",
			Usage: "Review the plan and follow progress in an interactive view",
		},
	)

	return &cli.Command{
		Name:      "download",
		Aliases:   []string{"dl"},
		Usage:     "Download tracks from links given as arguments, a file or stdin",
		ArgsUsage: "[links...]",
		Flags:     flags,
		Action:    r.Download,
	}
}

// planCommand runs resolution only
func planCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "plan",
		Usage:     "Resolve links and list the tracks a download would fetch",
		ArgsUsage: "[links...]",
		Flags: append(pipelineFlags(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		),
		Action: r.Plan,
	}
}

// historyCommand lists recorded downloads
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show the download history",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: text, csv or json",
				Value: "text",
			},
			&cli.StringFlag{
				Name:  "track",
				Usage: "Only show downloads of this track link or id",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of rows (0 for all)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to file instead of stdout",
			},
		},
		Action: r.History,
	}
}

// setupCommand handles setup operations for configuration and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Create a configuration file, optionally storing credentials",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "username",
						Aliases: []string{"u"},
						Usage:   "Account username to store",
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password to store",
					},
					&cli.StringFlag{
						Name:  "catalog-url",
						Usage: "Catalog service base URL",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing configuration file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the history database and run migrations",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the latest migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}
