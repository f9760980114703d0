package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config holds the connection settings for the FinPol API.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
}

// FinPolClient is a pure HTTP client for the FinPol API.
type FinPolClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewFinPolClient creates a new client for the FinPol API.
func NewFinPolClient(cfg Config) *FinPolClient {
	return &FinPolClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the API and returns the response body.
func (c *FinPolClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// AnalyzeTransaction runs the full risk and compliance analysis.
func (c *FinPolClient) AnalyzeTransaction(ctx context.Context, tx map[string]any) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/transactions/analyze", nil, tx)
}

// GetTransaction fetches a stored transaction record by ID.
func (c *FinPolClient) GetTransaction(ctx context.Context, id string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/transactions/"+url.PathEscape(id), nil, nil)
}

// ListTransactions lists stored transaction records, newest first.
func (c *FinPolClient) ListTransactions(ctx context.Context, limit, offset int) (json.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/transactions", q, nil)
}

// SearchRegulations runs a free-text regulation search.
func (c *FinPolClient) SearchRegulations(ctx context.Context, query string, topK int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("q", query)
	if topK > 0 {
		q.Set("top_k", strconv.Itoa(topK))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/compliance/regulations/search", q, nil)
}

// ComplianceReport re-analyzes a stored transaction and returns the full
// report including the compliance explanation.
func (c *FinPolClient) ComplianceReport(ctx context.Context, id string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/compliance/report/"+url.PathEscape(id), nil, nil)
}
