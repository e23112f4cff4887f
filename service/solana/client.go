package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brojonat/dustwatch/service/metrics"
	"github.com/brojonat/dustwatch/service/outcome"
	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrInvalidSignature is returned for signatures that are not valid base58
// encoded 64-byte values.
var ErrInvalidSignature = errors.New("invalid transaction signature")

// ErrInvalidAddress is returned for addresses that are not valid public keys.
var ErrInvalidAddress = errors.New("invalid address")

// RPCClient is the subset of *rpc.Client the Client uses.
type RPCClient interface {
	GetSignaturesForAddressWithOpts(
		ctx context.Context,
		address solana.PublicKey,
		opts *rpc.GetSignaturesForAddressOpts,
	) ([]*rpc.TransactionSignature, error)

	GetTransaction(
		ctx context.Context,
		signature solana.Signature,
		opts *rpc.GetTransactionOpts,
	) (*rpc.GetTransactionResult, error)
}

var _ RPCClient = (*rpc.Client)(nil)

// NewRPCClient returns a solana-go RPC client for rpcURL. Endpoints that take
// an API key carry it in the URL (e.g. https://mainnet.helius-rpc.com/?api-key=KEY).
func NewRPCClient(rpcURL string) RPCClient {
	return rpc.New(rpcURL)
}

// RecordCache stores raw records by signature. A miss is (nil, false, nil).
type RecordCache interface {
	Get(ctx context.Context, signature string) (*outcome.RawTransaction, bool, error)
	Set(ctx context.Context, signature string, raw *outcome.RawTransaction) error
}

// Client fetches raw transaction records and wallet signature history.
type Client struct {
	rpc      RPCClient
	cache    RecordCache
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics (e.g., "mainnet", "devnet", rpc host)

	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithCache enables the raw record cache.
func WithCache(cache RecordCache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithMaxRetries sets how many times a failed getTransaction is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackoff sets the initial and maximum retry intervals.
func WithBackoff(initial, maxInterval time.Duration) Option {
	return func(c *Client) {
		c.initialInterval = initial
		c.maxInterval = maxInterval
	}
}

// NewClient creates a new Solana client.
// The endpoint parameter is used for metrics labeling (e.g., "mainnet", "devnet", or RPC hostname).
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		rpc:             rpcClient,
		logger:          logger,
		metrics:         m,
		endpoint:        endpoint,
		maxRetries:      3,
		initialInterval: time.Second,
		maxInterval:     16 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchTransaction returns the raw record for signature, consulting the cache
// first when one is configured.
func (c *Client) FetchTransaction(ctx context.Context, signature string) (*outcome.RawTransaction, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if c.cache != nil {
		raw, ok, err := c.cache.Get(ctx, signature)
		switch {
		case err != nil:
			c.logger.WarnContext(ctx, "raw record cache lookup failed", "signature", signature, "error", err)
			c.recordCache("error")
		case ok:
			c.recordCache("hit")
			return raw, nil
		default:
			c.recordCache("miss")
		}
	}

	result, err := c.getTransaction(ctx, sig)
	if err != nil {
		return nil, err
	}

	raw, err := FromRPCResult(result)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, signature, raw); err != nil {
			c.logger.WarnContext(ctx, "failed to cache raw record", "signature", signature, "error", err)
		}
	}

	return raw, nil
}

// getTransaction calls getTransaction with exponential backoff. Rate limited
// attempts wait an extra interval on top of the backoff. A node that cannot
// decode the versioned response is retried in legacy mode.
func (c *Client) getTransaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	opts := &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		MaxSupportedTransactionVersion: &[]uint64{0}[0],
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxInterval = c.maxInterval
	b.MaxElapsedTime = 0

	var result *rpc.GetTransactionResult
	attempt := 0

	err := backoff.Retry(func() error {
		start := time.Now()
		res, err := c.rpc.GetTransaction(ctx, sig, opts)
		c.recordCall("GetTransaction", err, start)

		if err == nil {
			if res == nil {
				return backoff.Permanent(outcome.ErrTransactionNotFound)
			}
			result = res
			return nil
		}

		if errors.Is(err, rpc.ErrNotFound) {
			return backoff.Permanent(outcome.ErrTransactionNotFound)
		}

		attempt++
		if attempt > c.maxRetries {
			return backoff.Permanent(fmt.Errorf("getTransaction failed after %d attempts: %w", attempt, err))
		}

		switch {
		case isRateLimited(err):
			pause := c.initialInterval << uint(attempt)
			c.logger.WarnContext(ctx, "rate limited, sleeping before retry",
				"signature", sig.String(),
				"attempt", attempt,
				"pause_seconds", pause.Seconds(),
			)
			if c.metrics != nil {
				c.metrics.RecordRateLimitHit(c.endpoint)
				c.metrics.RecordRPCRetry("GetTransaction", "rate_limit")
			}
			select {
			case <-ctx.Done():
				return backoff.Permanent(ctx.Err())
			case <-time.After(pause):
			}
		case isLegacyParseError(err) && opts.MaxSupportedTransactionVersion != nil:
			c.logger.WarnContext(ctx, "could not parse as versioned tx, retrying as legacy",
				"signature", sig.String(),
			)
			if c.metrics != nil {
				c.metrics.RecordRPCRetry("GetTransaction", "parse_error")
			}
			opts = &rpc.GetTransactionOpts{Encoding: solana.EncodingBase64}
		default:
			c.logger.WarnContext(ctx, "failed to get transaction on attempt",
				"signature", sig.String(),
				"attempt", attempt,
				"error", err,
			)
			if c.metrics != nil {
				c.metrics.RecordRPCRetry("GetTransaction", "timeout_or_error")
			}
		}
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListSignatures returns up to limit signatures for address, newest first.
// If before is non-empty, only signatures older than it are returned.
// Failed transactions are included since they still paid fees.
func (c *Client) ListSignatures(ctx context.Context, address string, limit int, before string) ([]SignatureInfo, error) {
	wallet, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	opts := &rpc.GetSignaturesForAddressOpts{Limit: &limit}
	if before != "" {
		beforeSig, err := solana.SignatureFromBase58(before)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		opts.Before = beforeSig
	}

	c.logger.DebugContext(ctx, "calling GetSignaturesForAddress",
		"wallet", address,
		"limit", limit,
		"before", before,
	)

	start := time.Now()
	signatures, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, wallet, opts)
	c.recordCall("GetSignaturesForAddress", err, start)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get signatures", "wallet", address, "error", err)
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.RecordRPCSignaturesPerCall(c.endpoint, float64(len(signatures)))
	}

	out := make([]SignatureInfo, 0, len(signatures))
	for _, sig := range signatures {
		out = append(out, signatureToDomain(sig))
	}

	c.logger.DebugContext(ctx, "fetched transaction signatures",
		"wallet", address,
		"count", len(out),
	)
	return out, nil
}

func (c *Client) recordCall(method string, err error, start time.Time) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, time.Since(start).Seconds())
}

func (c *Client) recordCache(result string) {
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(result)
	}
}

func isRateLimited(err error) bool {
	return strings.Contains(err.Error(), "429")
}

// isLegacyParseError matches the decoder failure solana-go reports when a
// node answers a versioned request with a legacy-shaped transaction.
func isLegacyParseError(err error) bool {
	return strings.Contains(err.Error(), "expects '\"' or 'n', but found '{'")
}
