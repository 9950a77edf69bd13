package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/JaimeStill/lineage/internal/layout"
)

const (
	EnvLayoutNodeWidth = "LINEAGE_LAYOUT_NODE_WIDTH"
	EnvLayoutRowHeight = "LINEAGE_LAYOUT_ROW_HEIGHT"
)

// LayoutConfig sets provenance graph spacing.
type LayoutConfig struct {
	NodeWidth float64 `toml:"node_width"`
	RowHeight float64 `toml:"row_height"`
}

// Options converts the section for layout.Compute.
func (c *LayoutConfig) Options() layout.Options {
	return layout.Options{NodeWidth: c.NodeWidth, RowHeight: c.RowHeight}
}

func (c *LayoutConfig) Finalize() error {
	if c.NodeWidth == 0 {
		c.NodeWidth = layout.DefaultNodeWidth
	}
	if c.RowHeight == 0 {
		c.RowHeight = layout.DefaultRowHeight
	}
	if v, err := strconv.ParseFloat(os.Getenv(EnvLayoutNodeWidth), 64); err == nil {
		c.NodeWidth = v
	}
	if v, err := strconv.ParseFloat(os.Getenv(EnvLayoutRowHeight), 64); err == nil {
		c.RowHeight = v
	}
	if c.NodeWidth <= 0 || c.RowHeight <= 0 {
		return errors.New("node_width and row_height must be positive")
	}
	return nil
}

func (c *LayoutConfig) Merge(overlay *LayoutConfig) {
	if overlay.NodeWidth != 0 {
		c.NodeWidth = overlay.NodeWidth
	}
	if overlay.RowHeight != 0 {
		c.RowHeight = overlay.RowHeight
	}
}
