package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "dustwatch",
		Usage: "Solana dust and spam transaction classifier CLI",
		Description: `A command-line tool for classifying Solana transactions and operating the dustwatch service.

Use this CLI to classify transactions locally, query the HTTP API, inspect stored
reports, manage wallet watches in Temporal, and follow report events.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			classifyCommand(),
			ataCommand(),
			clientCommands(),
			// Database inspection commands
			{
				Name:  "db",
				Usage: "Report database inspection commands",
				Subcommands: []*cli.Command{
					listReportsCommand(),
					getReportCommand(),
				},
			},
			// Temporal scan and watch commands
			{
				Name:  "temporal",
				Usage: "Temporal scan and watch management commands",
				Subcommands: []*cli.Command{
					scanCommand(),
					watchCommands(),
				},
			},
			{
				Name:  "nats",
				Usage: "NATS report streaming commands",
				Subcommands: []*cli.Command{
					subscribeCommand(),
				},
			},
			sseCommands(),
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
					versionCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "temporal-host",
				Usage:   "Temporal server address",
				EnvVars: []string{"TEMPORAL_HOST"},
				Value:   "localhost:7233",
			},
			&cli.StringFlag{
				Name:    "temporal-namespace",
				Usage:   "Temporal namespace",
				EnvVars: []string{"TEMPORAL_NAMESPACE"},
				Value:   "default",
			},
			&cli.StringFlag{
				Name:    "temporal-task-queue",
				Usage:   "Temporal task queue",
				EnvVars: []string{"TEMPORAL_TASK_QUEUE"},
				Value:   "dustwatch-scans",
			},
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "dustwatch HTTP server URL",
				EnvVars: []string{"SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				EnvVars: []string{"NATS_URL"},
				Value:   "nats://localhost:4222",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
