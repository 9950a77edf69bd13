package history

import (
	"net/url"
	"strconv"

	"github.com/JaimeStill/lineage/pkg/query"
)

var projection = query.
	NewProjectionMap("analyses", "a").
	Project("id", "id").
	Project("image_id", "image_id").
	Project("filename", "filename").
	Project("score", "overall_score").
	Project("is_deepfake", "is_deepfake").
	Project("verdict", "verdict").
	Project("source", "source").
	Project("analyzed_at", "analyzed_at")

var defaultSort = []query.SortField{
	{Field: "analyzed_at", Descending: true},
	{Field: "id"},
}

// Filters narrows Recent. Nil fields are ignored.
type Filters struct {
	Source     *Source `json:"source,omitempty"`
	IsDeepfake *bool   `json:"is_deepfake,omitempty"`
}

// Apply adds the filter conditions to b.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	var source *string
	if f.Source != nil {
		s := string(*f.Source)
		source = &s
	}
	return b.
		WhereEquals("source", source).
		WhereEquals("is_deepfake", f.IsDeepfake)
}

// FiltersFromQuery reads source and is_deepfake. Unknown sources and
// unparseable booleans are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	switch s := Source(values.Get("source")); s {
	case SourcePipeline, SourceBatch:
		f.Source = &s
	}

	if v, err := strconv.ParseBool(values.Get("is_deepfake")); err == nil {
		f.IsDeepfake = &v
	}

	return f
}
