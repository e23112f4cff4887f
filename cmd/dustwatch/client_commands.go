package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brojonat/dustwatch/client"
	"github.com/brojonat/dustwatch/service/inspector"
	"github.com/urfave/cli/v2"
)

func clientCommands() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "HTTP client commands for interacting with the dustwatch service",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: 60 * time.Second,
			},
		},
		Subcommands: []*cli.Command{
			txCommand(),
			countCommand(),
			spammedCommand(),
			reportsCommand(),
			clientScanCommand(),
		},
	}
}

func newHTTPClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only errors to stderr
	}))
	return client.NewClient(c.String("server-url"), &http.Client{Timeout: c.Duration("timeout")}, logger)
}

func requireSignature(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("requires exactly one argument: transaction signature")
	}
	return c.Args().First(), nil
}

func txCommand() *cli.Command {
	return &cli.Command{
		Name:      "tx",
		Usage:     "Inspect a transaction through the server",
		ArgsUsage: "<signature>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "jq",
				Usage: "jq expression applied to the outcome (can be specified multiple times)",
			},
		},
		Action: func(c *cli.Context) error {
			sig, err := requireSignature(c)
			if err != nil {
				return err
			}
			queries, err := compileQueries(c.StringSlice("jq"))
			if err != nil {
				return err
			}

			out, err := newHTTPClient(c).Inspect(c.Context, sig)
			if err != nil {
				return fmt.Errorf("failed to inspect transaction: %w", err)
			}

			switch {
			case len(queries) > 0:
				return runQueries(c.App.Writer, queries, out)
			case c.Bool("json"):
				return writeJSON(c.App.Writer, out)
			default:
				printOutcome(c.App.Writer, out)
				return nil
			}
		},
	}
}

func countCommand() *cli.Command {
	return &cli.Command{
		Name:      "count",
		Usage:     "Count flagged movements of a transaction",
		ArgsUsage: "<signature>",
		Action: func(c *cli.Context) error {
			sig, err := requireSignature(c)
			if err != nil {
				return err
			}
			count, err := newHTTPClient(c).Count(c.Context, sig)
			if err != nil {
				return fmt.Errorf("failed to count flagged movements: %w", err)
			}
			if c.Bool("json") {
				return writeJSON(c.App.Writer, map[string]int{"count": count})
			}
			fmt.Fprintln(c.App.Writer, count)
			return nil
		},
	}
}

func spammedCommand() *cli.Command {
	return &cli.Command{
		Name:      "spammed",
		Usage:     "List only the flagged movements of a transaction",
		ArgsUsage: "<signature>",
		Action: func(c *cli.Context) error {
			sig, err := requireSignature(c)
			if err != nil {
				return err
			}
			spammed, err := newHTTPClient(c).Spammed(c.Context, sig)
			if err != nil {
				return fmt.Errorf("failed to fetch flagged movements: %w", err)
			}
			if c.Bool("json") {
				return writeJSON(c.App.Writer, spammed)
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tADDRESS\tAMOUNT")
			for _, m := range spammed.NativeAccounts {
				fmt.Fprintf(w, "native\t%s\t%s SOL\n", m.Address, formatLamports(m.AmountTransacted))
			}
			for _, m := range spammed.TokenAccounts {
				fmt.Fprintf(w, "token\t%s\t%s\n", m.ATAAddress, formatTokenAmount(m.AmountTransacted, m.MintDecimals))
			}
			return w.Flush()
		},
	}
}

func reportsCommand() *cli.Command {
	return &cli.Command{
		Name:      "reports",
		Usage:     "List stored reports of a signer through the server",
		ArgsUsage: "<signer>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 50},
			&cli.IntFlag{Name: "offset"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: signer address")
			}
			reports, err := newHTTPClient(c).ListReports(c.Context, c.Args().First(), c.Int("limit"), c.Int("offset"))
			if err != nil {
				return fmt.Errorf("failed to list reports: %w", err)
			}
			if c.Bool("json") {
				return writeJSON(c.App.Writer, reports)
			}
			rows := make([]*inspector.Report, len(reports))
			for i, r := range reports {
				rows[i] = &r.Report
			}
			printReportTable(c.App.Writer, rows)
			return nil
		},
	}
}

func clientScanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Scan the recent transactions of a wallet through the server",
		ArgsUsage: "<address>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 100, Usage: "Number of recent signatures to scan"},
			&cli.BoolFlag{Name: "skip-known", Usage: "Skip signatures that already have a report"},
			&cli.BoolFlag{Name: "wait", Aliases: []string{"w"}, Usage: "Block until the scan finishes"},
			&cli.DurationFlag{Name: "wait-timeout", Value: 10 * time.Minute},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet address")
			}
			cl := newHTTPClient(c)

			id, err := cl.StartScan(c.Context, c.Args().First(), c.Int("limit"), c.Bool("skip-known"))
			if err != nil {
				return fmt.Errorf("failed to start scan: %w", err)
			}
			if !c.Bool("wait") {
				if c.Bool("json") {
					return writeJSON(c.App.Writer, map[string]string{"workflow_id": id})
				}
				fmt.Fprintf(c.App.Writer, "✓ Scan started: %s\n", id)
				return nil
			}

			if !c.Bool("json") {
				fmt.Fprintf(os.Stderr, "Waiting for scan %s...\n", id)
			}
			ctx, cancel := context.WithTimeout(c.Context, c.Duration("wait-timeout"))
			defer cancel()
			status, err := cl.AwaitScan(ctx, id, 2*time.Second)
			if err != nil {
				return fmt.Errorf("failed to await scan: %w", err)
			}
			if c.Bool("json") {
				return writeJSON(c.App.Writer, status)
			}
			printScanStatus(c.App.Writer, status.WorkflowID, status.Status, status.Error, status.Result)
			return nil
		},
	}
}

func printScanStatus(w io.Writer, workflowID, status, errMsg string, result *client.ScanResult) {
	fmt.Fprintf(w, "Workflow:  %s\n", workflowID)
	fmt.Fprintf(w, "Status:    %s\n", status)
	if errMsg != "" {
		fmt.Fprintf(w, "Error:     %s\n", errMsg)
	}
	if result == nil {
		return
	}
	fmt.Fprintf(w, "Scanned:   %d (skipped %d, failed %d)\n", result.Scanned, result.Skipped, result.Failed)
	fmt.Fprintf(w, "Flagged:   %d\n", result.Flagged)
	for _, sig := range result.FlaggedSignatures {
		fmt.Fprintf(w, "  %s\n", sig)
	}
}
