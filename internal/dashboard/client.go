// Package dashboard implements the client side of the AlphaGraph API:
// a typed HTTP client, a controller owning the dashboard state, and the
// pure presentation mapping used to render it.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alphagraph/alphagraph/pkg/models"
)

// API is the backend surface the controller depends on.
type API interface {
	RecentAnalyses(ctx context.Context, limit int) ([]models.NewsAnalysis, error)
	Trends(ctx context.Context) (*models.TrendsSnapshot, error)
	Companies(ctx context.Context) ([]models.Company, error)
	PopulateDemo(ctx context.Context) error
	Analyze(ctx context.Context, draft models.DraftArticle) (*models.NewsAnalysis, error)
}

// Compile-time interface check.
var _ API = (*Client)(nil)

// Client is a typed HTTP client for the AlphaGraph API.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client for the API at baseURL
// (e.g. "http://localhost:8080").
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 150 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecentAnalyses fetches the newest analyses.
func (c *Client) RecentAnalyses(ctx context.Context, limit int) ([]models.NewsAnalysis, error) {
	var analyses []models.NewsAnalysis
	url := fmt.Sprintf("%s/api/news/recent?limit=%d", c.baseURL, limit)
	if err := c.getJSON(ctx, url, &analyses); err != nil {
		return nil, err
	}
	return analyses, nil
}

// Trends fetches the trending-companies snapshot.
func (c *Client) Trends(ctx context.Context) (*models.TrendsSnapshot, error) {
	var snapshot models.TrendsSnapshot
	if err := c.getJSON(ctx, c.baseURL+"/api/trends", &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Companies fetches the tracked-company reference list.
func (c *Client) Companies(ctx context.Context) ([]models.Company, error) {
	var body struct {
		Companies []models.Company `json:"companies"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/api/companies", &body); err != nil {
		return nil, err
	}
	return body.Companies, nil
}

// PopulateDemo asks the server to seed the demo corpus. The response
// body is not used beyond error detection.
func (c *Client) PopulateDemo(ctx context.Context) error {
	return c.postJSON(ctx, c.baseURL+"/api/demo/populate", nil, nil)
}

// Analyze submits a draft article and returns the resulting analysis.
func (c *Client) Analyze(ctx context.Context, draft models.DraftArticle) (*models.NewsAnalysis, error) {
	var analysis models.NewsAnalysis
	if err := c.postJSON(ctx, c.baseURL+"/api/analyze", draft, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// ── HTTP plumbing ──

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, url string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("dashboard: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("dashboard: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("dashboard: %s %s: %s", req.Method, req.URL.Path, apiError(resp))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("dashboard: decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// apiError extracts the server's {error: msg} body, falling back to the
// HTTP status.
func apiError(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return fmt.Sprintf("%s (HTTP %d)", body.Error, resp.StatusCode)
	}
	return fmt.Sprintf("HTTP %d", resp.StatusCode)
}
