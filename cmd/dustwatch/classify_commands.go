package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/brojonat/dustwatch/service/outcome"
	"github.com/brojonat/dustwatch/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/itchyny/gojq"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

const lamportDecimals = 9

func classifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Classify a transaction locally",
		ArgsUsage: "[signature]",
		Description: `Fetch a transaction over RPC (or read a getTransaction record from a file)
and print its native movements, token movements and sanitized logs.

Examples:
  dustwatch classify 5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7
  dustwatch classify --file tx.json --jq '.native_accounts[] | select(.spam) | .address'
  curl ... | dustwatch classify --file -`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "Solana RPC endpoint",
				EnvVars: []string{"SOLANA_RPC_URL"},
				Value:   "https://api.mainnet-beta.solana.com",
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Read a getTransaction record (bare or JSON-RPC envelope) from a file, - for stdin",
			},
			&cli.StringSliceFlag{
				Name:  "jq",
				Usage: "jq expression applied to the outcome (can be specified multiple times)",
			},
			&cli.Uint64Flag{
				Name:  "spam-threshold",
				Usage: "Native movements below this many lamports are spam",
				Value: outcome.DefaultNativeSpamThreshold,
			},
			&cli.Uint64Flag{
				Name:  "low-value-units",
				Usage: "Token movements below this many display units are low value",
				Value: outcome.DefaultTokenLowValueUnits,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "RPC timeout",
				Value: 30 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			cfg := outcome.DefaultConfig()
			cfg.NativeSpamThreshold = c.Uint64("spam-threshold")
			cfg.TokenLowValueUnits = c.Uint64("low-value-units")
			classifier, err := outcome.New(cfg)
			if err != nil {
				return err
			}

			queries, err := compileQueries(c.StringSlice("jq"))
			if err != nil {
				return err
			}

			raw, err := loadRecord(c)
			if err != nil {
				return err
			}

			out, err := classifier.Parse(raw)
			if err != nil {
				return fmt.Errorf("failed to classify transaction: %w", err)
			}

			w := c.App.Writer
			switch {
			case len(queries) > 0:
				return runQueries(w, queries, out)
			case c.Bool("json"):
				return writeJSON(w, out)
			default:
				printOutcome(w, out)
				return nil
			}
		},
	}
}

// loadRecord reads the record from --file or fetches the signature argument.
func loadRecord(c *cli.Context) (*outcome.RawTransaction, error) {
	if path := c.String("file"); path != "" {
		var data []byte
		var err error
		if path == "-" {
			data, err = io.ReadAll(c.App.Reader)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		return outcome.DecodeRawTransaction(data)
	}

	if c.NArg() != 1 {
		return nil, fmt.Errorf("requires a transaction signature or --file")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	client := solana.NewClient(solana.NewRPCClient(c.String("rpc-url")), "cli", nil, logger)

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()
	return client.FetchTransaction(ctx, c.Args().First())
}

func compileQueries(exprs []string) ([]*gojq.Code, error) {
	codes := make([]*gojq.Code, len(exprs))
	for i, expr := range exprs {
		query, err := gojq.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", expr, err)
		}
		codes[i], err = gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", expr, err)
		}
	}
	return codes, nil
}

// runQueries evaluates each query against the JSON form of v and writes every
// result as one line of JSON.
func runQueries(w io.Writer, codes []*gojq.Code, v any) error {
	// gojq only accepts plain maps and slices
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	for _, code := range codes {
		iter := code.Run(input)
		for {
			result, ok := iter.Next()
			if !ok {
				break
			}
			if err, isErr := result.(error); isErr {
				return fmt.Errorf("jq evaluation failed: %w", err)
			}
			if err := enc.Encode(result); err != nil {
				return err
			}
		}
	}
	return nil
}

func printOutcome(w io.Writer, out *outcome.TransactionOutcome) {
	fmt.Fprintln(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintf(w, "Signer:      %s\n", out.Signer.Address)
	fmt.Fprintf(w, "Balance:     %s -> %s SOL (moved %s)\n",
		formatLamports(out.Signer.PreBalance),
		formatLamports(out.Signer.PostBalance),
		formatLamports(out.Signer.AmountTransacted),
	)
	fmt.Fprintf(w, "Flagged:     %d spam, %d low value, %d suspicious logs\n",
		out.SpamCount()-out.LowValueCount(), out.LowValueCount(), out.SuspiciousLogCount())
	fmt.Fprintln(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	if len(out.NativeAccounts) > 0 {
		fmt.Fprintln(w, "\nNative movements:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "INDEX\tADDRESS\tAMOUNT (SOL)\tFLAG")
		for _, m := range out.NativeAccounts {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", m.Index, m.Address, formatLamports(m.AmountTransacted), flag(m.Spam, "spam"))
		}
		tw.Flush()
	}

	if len(out.TokenAccounts) > 0 {
		fmt.Fprintln(w, "\nToken movements:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "INDEX\tTOKEN ACCOUNT\tAMOUNT\tFLAG")
		for _, m := range sortedTokenMovements(out.TokenAccounts) {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", m.AccountIndex, m.ATAAddress, formatTokenAmount(m.AmountTransacted, m.MintDecimals), flag(m.LowValue, "low value"))
		}
		tw.Flush()
	}

	if n := out.SuspiciousLogCount(); n > 0 {
		fmt.Fprintln(w, "\nSuspicious logs:")
		for _, entry := range out.Logs {
			if entry.HasInvalidChars {
				fmt.Fprintf(w, "  %q (%d invalid)\n", entry.Message, len(entry.InvalidChars))
			}
		}
	}
}

func flag(set bool, label string) string {
	if set {
		return label
	}
	return "-"
}

func sortedTokenMovements(m map[string]outcome.TokenMovement) []outcome.TokenMovement {
	out := make([]outcome.TokenMovement, 0, len(m))
	for _, mv := range m {
		out = append(out, mv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountIndex < out[j].AccountIndex })
	return out
}

// formatLamports renders a lamport amount in SOL without float rounding.
func formatLamports(lamports uint64) string {
	return formatTokenAmount(lamports, lamportDecimals)
}

// formatTokenAmount renders minor units as a display amount with the given
// number of decimals.
func formatTokenAmount(amount uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals)).String()
}

func ataCommand() *cli.Command {
	return &cli.Command{
		Name:      "ata",
		Usage:     "Derive the associated token account of a wallet for a mint",
		ArgsUsage: "<wallet> <mint>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("requires exactly two arguments: wallet and mint")
			}
			ata, err := deriveATA(c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return writeJSON(c.App.Writer, map[string]string{
					"wallet": c.Args().Get(0),
					"mint":   c.Args().Get(1),
					"ata":    ata,
				})
			}
			fmt.Fprintln(c.App.Writer, ata)
			return nil
		},
	}
}

func deriveATA(wallet, mint string) (string, error) {
	walletKey, err := solanago.PublicKeyFromBase58(wallet)
	if err != nil {
		return "", fmt.Errorf("invalid wallet address: %w", err)
	}
	mintKey, err := solanago.PublicKeyFromBase58(mint)
	if err != nil {
		return "", fmt.Errorf("invalid mint address: %w", err)
	}
	ata, _, err := solanago.FindAssociatedTokenAddress(walletKey, mintKey)
	if err != nil {
		return "", fmt.Errorf("failed to derive associated token address: %w", err)
	}
	return ata.String(), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
