// Package forensicstest provides a scriptable forensics.Client for tests.
package forensicstest

import (
	"context"
	"errors"
	"sync"

	"github.com/JaimeStill/lineage/internal/forensics"
)

// Client answers each call with the matching func, or with a canned
// success derived from the input when the func is nil. Calls are counted per
// operation.
type Client struct {
	UploadFn  func(ctx context.Context, file forensics.File) (*forensics.Upload, error)
	AnalyzeFn func(ctx context.Context, imageID string) (*forensics.Analysis, error)
	GraphFn   func(ctx context.Context, imageID string) (*forensics.Graph, error)
	SpreadFn  func(ctx context.Context, imageID string) (*forensics.Spread, error)
	ReportFn  func(ctx context.Context, imageID string) (*forensics.Report, error)
	StatsFn   func(ctx context.Context) (*forensics.DashboardStats, error)

	mu    sync.Mutex
	calls map[string]int
}

// Calls returns how many times op was invoked. Ops are "upload", "analyze",
// "graph", "spread", "report", and "stats".
func (c *Client) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

func (c *Client) count(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[op]++
}

func (c *Client) Upload(ctx context.Context, file forensics.File) (*forensics.Upload, error) {
	c.count("upload")
	if c.UploadFn != nil {
		return c.UploadFn(ctx, file)
	}
	return &forensics.Upload{ImageID: "img-" + file.Name, Filename: file.Name, Format: "PNG"}, nil
}

func (c *Client) Analyze(ctx context.Context, imageID string) (*forensics.Analysis, error) {
	c.count("analyze")
	if c.AnalyzeFn != nil {
		return c.AnalyzeFn(ctx, imageID)
	}
	return Analysis(imageID, 0.1, false), nil
}

func (c *Client) BuildGraph(ctx context.Context, imageID string) (*forensics.Graph, error) {
	c.count("graph")
	if c.GraphFn != nil {
		return c.GraphFn(ctx, imageID)
	}
	return &forensics.Graph{
		ImageID:    imageID,
		RootNodeID: "root",
		Nodes: []forensics.Node{
			{ID: "root", ImageID: imageID, IsRoot: true},
			{ID: "copy", ImageID: imageID},
		},
		Edges: []forensics.Edge{
			{Source: "root", Target: "copy", Relationship: forensics.RelationshipDerivedFrom},
		},
	}, nil
}

func (c *Client) SimulateSpread(ctx context.Context, imageID string) (*forensics.Spread, error) {
	c.count("spread")
	if c.SpreadFn != nil {
		return c.SpreadFn(ctx, imageID)
	}
	return &forensics.Spread{ImageID: imageID}, nil
}

func (c *Client) GenerateReport(ctx context.Context, imageID string) (*forensics.Report, error) {
	c.count("report")
	if c.ReportFn != nil {
		return c.ReportFn(ctx, imageID)
	}
	return &forensics.Report{ImageID: imageID, Verdict: "AUTHENTIC"}, nil
}

func (c *Client) DashboardStats(ctx context.Context) (*forensics.DashboardStats, error) {
	c.count("stats")
	if c.StatsFn != nil {
		return c.StatsFn(ctx)
	}
	return &forensics.DashboardStats{}, nil
}

// Analysis builds an analysis bundle with the given score and flag.
func Analysis(imageID string, score float64, isDeepfake bool) *forensics.Analysis {
	return &forensics.Analysis{
		ImageID: imageID,
		DeepfakeScore: forensics.Score{
			OverallScore: score,
			IsDeepfake:   isDeepfake,
		},
	}
}

// Rejected builds the error the HTTP client returns for an error status.
func Rejected(op string, status int, detail string) error {
	return &forensics.RemoteError{
		Op:         op,
		StatusCode: status,
		Detail:     detail,
		Err:        errors.New("request rejected"),
	}
}
