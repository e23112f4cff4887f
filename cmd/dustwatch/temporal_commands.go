package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brojonat/dustwatch/client"
	"github.com/brojonat/dustwatch/service/temporal"
	"github.com/urfave/cli/v2"
)

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Start a one-off scan workflow for a wallet",
		ArgsUsage: "<address>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of recent signatures to scan",
				Value: temporal.DefaultScanLimit,
			},
			&cli.BoolFlag{
				Name:  "skip-known",
				Usage: "Skip signatures that already have a report",
			},
			&cli.BoolFlag{
				Name:    "wait",
				Aliases: []string{"w"},
				Usage:   "Block until the workflow completes",
			},
			&cli.DurationFlag{
				Name:  "wait-timeout",
				Value: 10 * time.Minute,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet address")
			}
			address := c.Args().First()

			tc, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			id, err := tc.StartScan(c.Context, temporal.ScanWalletInput{
				Address:   address,
				Limit:     c.Int("limit"),
				SkipKnown: c.Bool("skip-known"),
			})
			if err != nil {
				return fmt.Errorf("failed to start scan: %w", err)
			}

			if !c.Bool("wait") {
				if c.Bool("json") {
					return writeJSON(c.App.Writer, map[string]string{"workflow_id": id, "address": address})
				}
				fmt.Fprintf(c.App.Writer, "✓ Scan started: %s\n", id)
				return nil
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("wait-timeout"))
			defer cancel()
			status, err := awaitWorkflow(ctx, tc, id)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return writeJSON(c.App.Writer, status)
			}

			var result *client.ScanResult
			if r := status.Result; r != nil {
				result = &client.ScanResult{
					Address:           r.Address,
					Scanned:           r.Scanned,
					Skipped:           r.Skipped,
					Flagged:           r.Flagged,
					Failed:            r.Failed,
					FlaggedSignatures: r.FlaggedSignatures,
					ScanTime:          r.ScanTime,
				}
			}
			printScanStatus(c.App.Writer, status.WorkflowID, status.Status, status.Error, result)
			return nil
		},
	}
}

func awaitWorkflow(ctx context.Context, tc *temporal.Client, workflowID string) (*temporal.ScanStatus, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		status, err := tc.GetScanResult(ctx, workflowID)
		if err != nil {
			return nil, fmt.Errorf("failed to get scan result: %w", err)
		}
		if status.Status != temporal.ScanStatusRunning {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func watchCommands() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Manage recurring wallet scan schedules",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create or update the scan schedule of a wallet",
				ArgsUsage: "<address>",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:    "interval",
						Aliases: []string{"i"},
						Usage:   "Scan interval",
						Value:   5 * time.Minute,
					},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("requires exactly one argument: wallet address")
					}
					if c.Duration("interval") < time.Minute {
						return fmt.Errorf("interval must be at least 1m")
					}

					tc, err := getTemporalClient(c)
					if err != nil {
						return err
					}
					defer tc.Close()

					if err := tc.UpsertWatchSchedule(c.Context, c.Args().First(), c.Duration("interval")); err != nil {
						return fmt.Errorf("failed to create schedule: %w", err)
					}
					fmt.Fprintf(c.App.Writer, "✓ Watching %s every %v\n", c.Args().First(), c.Duration("interval"))
					return nil
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete the scan schedule of a wallet",
				Aliases:   []string{"rm"},
				ArgsUsage: "<address>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("requires exactly one argument: wallet address")
					}

					tc, err := getTemporalClient(c)
					if err != nil {
						return err
					}
					defer tc.Close()

					if err := tc.DeleteWatchSchedule(c.Context, c.Args().First()); err != nil {
						return fmt.Errorf("failed to delete schedule: %w", err)
					}
					fmt.Fprintf(c.App.Writer, "✓ Stopped watching %s\n", c.Args().First())
					return nil
				},
			},
			{
				Name:    "list",
				Usage:   "List watched wallets",
				Aliases: []string{"ls"},
				Action: func(c *cli.Context) error {
					tc, err := getTemporalClient(c)
					if err != nil {
						return err
					}
					defer tc.Close()

					schedules, err := tc.ListWatchSchedules(c.Context)
					if err != nil {
						return fmt.Errorf("failed to list schedules: %w", err)
					}
					if c.Bool("json") {
						return writeJSON(c.App.Writer, schedules)
					}

					w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "SCHEDULE ID\tADDRESS\tINTERVAL\tPAUSED")
					for _, s := range schedules {
						fmt.Fprintf(w, "%s\t%s\t%v\t%t\n", s.ID, s.Address, s.Interval, s.Paused)
					}
					w.Flush()
					fmt.Fprintf(os.Stderr, "\nTotal: %d watches\n", len(schedules))
					return nil
				},
			},
		},
	}
}

// Helper function to connect to Temporal
func getTemporalClient(c *cli.Context) (*temporal.Client, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	tc, err := temporal.NewClient(
		c.String("temporal-host"),
		c.String("temporal-namespace"),
		c.String("temporal-task-queue"),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}
	return tc, nil
}
