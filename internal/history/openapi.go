package history

import "github.com/JaimeStill/lineage/pkg/openapi"

// Spec documents the history routes.
var Spec = struct {
	Recent, Stats *openapi.Operation
}{
	Recent: &openapi.Operation{
		Summary: "Recorded analyses",
		Tags:    []string{"History"},
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("page", "integer", "Page number, starting at 1"),
			openapi.QueryParam("page_size", "integer", "Results per page"),
			openapi.QueryParam("search", "string", "Matches filename or image id"),
			openapi.QueryParam("sort", "string", "Comma-separated fields, - for descending. Default -analyzed_at"),
			openapi.QueryParam("source", "string", "pipeline or batch"),
			openapi.QueryParam("is_deepfake", "boolean", "Filter on the deepfake flag"),
		},
		Responses: map[int]*openapi.Response{
			200: {Description: "One page of analyses"},
			503: openapi.ResponseRef("Unavailable"),
		},
	},
	Stats: &openapi.Operation{
		Summary: "Verdict counts across recorded analyses",
		Tags:    []string{"History"},
		Responses: map[int]*openapi.Response{
			200: {Description: "Counts by resolved verdict"},
			503: openapi.ResponseRef("Unavailable"),
		},
	},
}
