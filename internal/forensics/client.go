package forensics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// Client performs the remote forensics operations. Implementations must be
// safe for concurrent use.
type Client interface {
	// Upload creates an image resource and returns its identifier, dimensions,
	// format, and perceptual hashes.
	Upload(ctx context.Context, file File) (*Upload, error)
	// Analyze runs deepfake, ELA, and metadata analysis on an uploaded image.
	Analyze(ctx context.Context, imageID string) (*Analysis, error)
	// BuildGraph fetches the derivative-lineage graph for an image.
	BuildGraph(ctx context.Context, imageID string) (*Graph, error)
	// SimulateSpread fetches the simulated social propagation for an image.
	SimulateSpread(ctx context.Context, imageID string) (*Spread, error)
	// GenerateReport compiles the final report. The service requires the
	// graph and spread to have been built first.
	GenerateReport(ctx context.Context, imageID string) (*Report, error)
	// DashboardStats returns aggregate statistics across all analyses.
	DashboardStats(ctx context.Context) (*DashboardStats, error)
}

// Option customizes an HTTP client.
type Option func(*client)

// WithHTTPClient replaces the underlying *http.Client. The bearer-token
// transport is still layered on top when a token is configured.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.http = hc
	}
}

// WithUnauthorizedHook registers fn to run whenever the service answers 401.
// Session invalidation is the caller's concern.
func WithUnauthorizedHook(fn func()) Option {
	return func(c *client) {
		c.onUnauthorized = fn
	}
}

type client struct {
	base           *url.URL
	http           *http.Client
	logger         *slog.Logger
	onUnauthorized func()
}

// New creates an HTTP client for the service at cfg.BaseURL.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	c := &client{
		base:   base,
		http:   &http.Client{Timeout: cfg.TimeoutDuration()},
		logger: logger.With("system", "forensics"),
	}

	for _, opt := range opts {
		opt(c)
	}

	if cfg.Token != "" {
		c.http = withBearer(c.http, cfg.Token)
	}

	return c, nil
}

func withBearer(hc *http.Client, token string) *http.Client {
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	wrapped := *hc
	wrapped.Transport = &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: token,
			TokenType:   "Bearer",
		}),
		Base: base,
	}
	return &wrapped
}

func (c *client) Upload(ctx context.Context, file File) (*Upload, error) {
	body, contentType, err := encodeMultipart(file)
	if err != nil {
		return nil, &RemoteError{Op: "upload", Err: err}
	}

	var out Upload
	if err := c.do(ctx, "upload", http.MethodPost, "/api/images/upload", body, contentType, &out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		c.logger.WarnContext(ctx, "upload response without image id", "filename", file.Name)
		return nil, err
	}
	return &out, nil
}

func (c *client) Analyze(ctx context.Context, imageID string) (*Analysis, error) {
	var out Analysis
	path := "/api/images/analyze/" + url.PathEscape(imageID)
	if err := c.do(ctx, "analyze", http.MethodPost, path, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) BuildGraph(ctx context.Context, imageID string) (*Graph, error) {
	var out Graph
	path := "/api/provenance/graph/" + url.PathEscape(imageID)
	if err := c.do(ctx, "build graph", http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) SimulateSpread(ctx context.Context, imageID string) (*Spread, error) {
	var out Spread
	path := "/api/social/spread/" + url.PathEscape(imageID)
	if err := c.do(ctx, "simulate spread", http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) GenerateReport(ctx context.Context, imageID string) (*Report, error) {
	var out Report
	path := "/api/reports/" + url.PathEscape(imageID)
	if err := c.do(ctx, "generate report", http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var out DashboardStats
	if err := c.do(ctx, "dashboard stats", http.MethodGet, "/api/reports/dashboard/stats", nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) do(
	ctx context.Context,
	op, method, path string,
	body io.Reader,
	contentType string,
	out any,
) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		remote := &RemoteError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Detail:     readDetail(resp.Body),
			Err:        statusError(resp.StatusCode),
		}

		c.logger.WarnContext(
			ctx, "forensics call failed",
			"op", op,
			"status", resp.StatusCode,
			"detail", remote.Detail,
		)

		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return remote
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %w", ErrInvalidResponse, err),
		}
	}

	return nil
}

// readDetail extracts the service's {"detail": "..."} message. Validation
// failures carry a structured detail instead; those yield "".
func readDetail(r io.Reader) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 1<<16)).Decode(&payload); err != nil {
		return ""
	}

	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err != nil {
		return ""
	}
	return strings.TrimSpace(detail)
}

func encodeMultipart(file File) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set(
		"Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name),
	)
	header.Set("Content-Type", file.ContentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", fmt.Errorf("write form part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
