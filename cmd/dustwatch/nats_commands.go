package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	natspkg "github.com/brojonat/dustwatch/service/nats"
	"github.com/urfave/cli/v2"
)

// subscribeCommand subscribes to report events for a signer.
func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Subscribe to report events",
		ArgsUsage: "[signer_address]",
		Description: `Subscribe to real-time report events published to NATS JetStream.

Events are published to the subject dust.{signer_address}. Without an address,
events for every signer are streamed.

Example:
  dustwatch nats subscribe DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK --json`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "flagged-only",
				Usage: "Only print reports with flagged movements",
			},
		},
		Action: func(c *cli.Context) error {
			signer := c.Args().First()
			jsonOutput := c.Bool("json")
			flaggedOnly := c.Bool("flagged-only")

			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
			sub, err := natspkg.NewSubscriber(c.String("nats-url"), logger)
			if err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			defer sub.Close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			events := make(chan *natspkg.ReportEvent, 16)
			unsubscribe, err := sub.Subscribe(ctx, signer, func(e *natspkg.ReportEvent) {
				select {
				case events <- e:
				case <-ctx.Done():
				}
			})
			if err != nil {
				return err
			}
			defer unsubscribe()

			if !jsonOutput {
				fmt.Fprintf(os.Stderr, "📡 Subscribing to: %s\n", natspkg.Subject(signer))
				fmt.Fprintf(os.Stderr, "\nWaiting for reports... (Ctrl-C to exit)\n\n")
			}

			count := 0
			for {
				select {
				case e := <-events:
					if flaggedOnly && e.SpamCount == 0 {
						continue
					}
					count++
					if err := printEvent(c.App.Writer, e, jsonOutput); err != nil {
						return err
					}
				case <-ctx.Done():
					if !jsonOutput {
						fmt.Fprintf(os.Stderr, "\n✅ Received %d reports\n", count)
					}
					return nil
				}
			}
		},
	}
}

func printEvent(w io.Writer, e *natspkg.ReportEvent, jsonOutput bool) error {
	if jsonOutput {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	fmt.Fprintln(w, "─────────────────────────────────────────────────────")
	fmt.Fprintf(w, "Signature:    %s\n", e.Signature)
	fmt.Fprintf(w, "Signer:       %s\n", e.Signer)
	fmt.Fprintf(w, "Slot:         %d\n", e.Slot)
	if e.BlockTime != nil {
		fmt.Fprintf(w, "Block Time:   %s\n", e.BlockTime.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Flagged:      %d (%d low value, %d suspicious logs)\n", e.SpamCount, e.LowValueCount, e.SuspiciousLogs)
	for _, m := range e.Spammed.NativeAccounts {
		fmt.Fprintf(w, "  native  %s  %s SOL\n", m.Address, formatLamports(m.AmountTransacted))
	}
	for _, m := range e.Spammed.TokenAccounts {
		fmt.Fprintf(w, "  token   %s  %s\n", m.ATAAddress, formatTokenAmount(m.AmountTransacted, m.MintDecimals))
	}
	fmt.Fprintf(w, "Published:    %s\n\n", e.PublishedAt.Format(time.RFC3339))
	return nil
}
