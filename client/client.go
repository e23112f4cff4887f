package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/brojonat/dustwatch/service/inspector"
	"github.com/brojonat/dustwatch/service/outcome"
)

// Report is a stored inspection report.
type Report struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	inspector.Report
}

// ScanResult is the summary of a finished wallet scan.
type ScanResult struct {
	Address           string    `json:"address"`
	Scanned           int       `json:"scanned"`
	Skipped           int       `json:"skipped"`
	Flagged           int       `json:"flagged"`
	Failed            int       `json:"failed"`
	FlaggedSignatures []string  `json:"flagged_signatures"`
	ScanTime          time.Time `json:"scan_time"`
}

// ScanStatus is the state of a scan workflow.
type ScanStatus struct {
	WorkflowID string      `json:"workflow_id"`
	Status     string      `json:"status"` // running, completed, failed, canceled, timed_out
	Result     *ScanResult `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Watch is a wallet with a recurring scan schedule.
type Watch struct {
	Address  string `json:"address"`
	Interval string `json:"interval"`
	Paused   bool   `json:"paused"`
}

// APIError is a non-success response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client is the HTTP client for the dustwatch service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new dustwatch service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Inspect fetches and classifies a transaction on the server.
func (c *Client) Inspect(ctx context.Context, signature string) (*outcome.TransactionOutcome, error) {
	var resp struct {
		Info *outcome.TransactionOutcome `json:"info"`
	}
	if err := c.do(ctx, "POST", "/tx/"+url.PathEscape(signature), nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	c.logger.Debug("transaction inspected", "signature", signature)
	return resp.Info, nil
}

// Count returns the number of flagged movements of a transaction.
func (c *Client) Count(ctx context.Context, signature string) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, "POST", "/count/"+url.PathEscape(signature), nil, http.StatusOK, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Spammed returns only the flagged movements of a transaction.
func (c *Client) Spammed(ctx context.Context, signature string) (*outcome.Spammed, error) {
	var resp outcome.Spammed
	if err := c.do(ctx, "POST", "/spammed/"+url.PathEscape(signature), nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Classify sends a raw getTransaction record (bare or as a JSON-RPC response)
// to the server for classification.
func (c *Client) Classify(ctx context.Context, raw []byte) (*outcome.TransactionOutcome, error) {
	var out outcome.TransactionOutcome
	if err := c.do(ctx, "POST", "/api/v1/classify", raw, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetReport retrieves the stored report of a transaction.
func (c *Client) GetReport(ctx context.Context, signature string) (*Report, error) {
	var report Report
	if err := c.do(ctx, "GET", "/api/v1/reports/"+url.PathEscape(signature), nil, http.StatusOK, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListReports lists stored reports of a signer, newest first.
func (c *Client) ListReports(ctx context.Context, signer string, limit, offset int) ([]*Report, error) {
	q := url.Values{}
	q.Set("signer", signer)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	var resp struct {
		Reports []*Report `json:"reports"`
	}
	if err := c.do(ctx, "GET", "/api/v1/reports?"+q.Encode(), nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.Reports, nil
}

// Watch creates or updates a recurring scan of a wallet. A zero interval
// uses the server default.
func (c *Client) Watch(ctx context.Context, address string, interval time.Duration) error {
	reqBody := map[string]interface{}{"address": address}
	if interval > 0 {
		reqBody["interval"] = interval.String()
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	if err := c.do(ctx, "POST", "/api/v1/watches", body, http.StatusCreated, nil); err != nil {
		return err
	}
	c.logger.Debug("wallet watched", "address", address, "interval", interval)
	return nil
}

// Unwatch removes the recurring scan of a wallet.
func (c *Client) Unwatch(ctx context.Context, address string) error {
	return c.do(ctx, "DELETE", "/api/v1/watches/"+url.PathEscape(address), nil, http.StatusNoContent, nil)
}

// ListWatches returns every watched wallet.
func (c *Client) ListWatches(ctx context.Context) ([]Watch, error) {
	var resp struct {
		Watches []Watch `json:"watches"`
	}
	if err := c.do(ctx, "GET", "/api/v1/watches", nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.Watches, nil
}

// StartScan starts a one-off scan of the most recent transactions of a wallet
// and returns the workflow ID.
func (c *Client) StartScan(ctx context.Context, address string, limit int, skipKnown bool) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"address":    address,
		"limit":      limit,
		"skip_known": skipKnown,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp struct {
		WorkflowID string `json:"workflow_id"`
	}
	if err := c.do(ctx, "POST", "/api/v1/scans", body, http.StatusAccepted, &resp); err != nil {
		return "", err
	}
	c.logger.Debug("scan started", "address", address, "workflow_id", resp.WorkflowID)
	return resp.WorkflowID, nil
}

// GetScan returns the state of a scan workflow.
func (c *Client) GetScan(ctx context.Context, workflowID string) (*ScanStatus, error) {
	var status ScanStatus
	if err := c.do(ctx, "GET", "/api/v1/scans/"+url.PathEscape(workflowID), nil, http.StatusOK, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// AwaitScan polls a scan until it leaves the running state or ctx is done.
func (c *Client) AwaitScan(ctx context.Context, workflowID string, every time.Duration) (*ScanStatus, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		status, err := c.GetScan(ctx, workflowID)
		if err != nil {
			return nil, err
		}
		if status.Status != "running" {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "GET", "/health", nil, http.StatusOK, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, expected int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != expected {
		return c.parseErrorResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
}
