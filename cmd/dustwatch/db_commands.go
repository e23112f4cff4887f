package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brojonat/dustwatch/service/db"
	"github.com/brojonat/dustwatch/service/inspector"
	"github.com/urfave/cli/v2"
)

func listReportsCommand() *cli.Command {
	return &cli.Command{
		Name:    "list-reports",
		Usage:   "List stored inspection reports",
		Aliases: []string{"ls"},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "signer",
				Aliases: []string{"s"},
				Usage:   "Filter by signer address",
			},
			&cli.BoolFlag{
				Name:  "flagged",
				Usage: "Only reports with flagged movements, across all signers",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of reports",
				Value:   50,
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Number of reports to skip (with --signer)",
			},
		},
		Action: func(c *cli.Context) error {
			signer := c.String("signer")
			flagged := c.Bool("flagged")
			if signer == "" && !flagged {
				return fmt.Errorf("must specify --signer or --flagged")
			}

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			var reports []*db.StoredReport
			if signer != "" {
				reports, err = store.ListReportsBySigner(c.Context, signer, int32(c.Int("limit")), int32(c.Int("offset")))
			} else {
				reports, err = store.ListFlaggedReports(c.Context, int32(c.Int("limit")))
			}
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

func getReportCommand() *cli.Command {
	return &cli.Command{
		Name:      "get-report",
		Usage:     "Get a stored report",
		Aliases:   []string{"get"},
		ArgsUsage: "<signature>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: transaction signature")
			}

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			report, err := store.GetReport(c.Context, c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to get report: %w", err)
			}

			if c.Bool("json") {
				return writeJSON(c.App.Writer, report)
			}

			w := c.App.Writer
			fmt.Fprintf(w, "ID:          %s\n", report.ID)
			fmt.Fprintf(w, "Signature:   %s\n", report.Signature)
			fmt.Fprintf(w, "Signer:      %s\n", report.Signer)
			fmt.Fprintf(w, "Slot:        %d\n", report.Slot)
			if report.BlockTime != nil {
				fmt.Fprintf(w, "Block Time:  %s\n", report.BlockTime.Format(time.RFC3339))
			}
			fmt.Fprintf(w, "Fee:         %s SOL\n", formatLamports(report.Fee))
			fmt.Fprintf(w, "Failed:      %t\n", report.Failed)
			fmt.Fprintf(w, "Inspected:   %s\n\n", report.InspectedAt.Format(time.RFC3339))
			if report.Outcome != nil {
				printOutcome(w, report.Outcome)
			}
			return nil
		},
	}
}

func printReportTable(out io.Writer, reports []*inspector.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SIGNATURE\tSIGNER\tSLOT\tSPAM\tLOW VALUE\tLOGS\tINSPECTED")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.Signature,
			r.Signer,
			r.Slot,
			r.SpamCount,
			r.LowValueCount,
			r.SuspiciousLogs,
			r.InspectedAt.Format(time.RFC3339),
		)
	}
	w.Flush()

	fmt.Fprintf(os.Stderr, "\nTotal: %d reports\n", len(reports))
}

// Helper function to connect to database
func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := db.NewPool(context.Background(), dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db.NewStore(pool, nil), pool.Close, nil
}
