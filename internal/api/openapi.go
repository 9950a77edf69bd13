package api

import (
	"github.com/JaimeStill/lineage/pkg/openapi"
	"github.com/JaimeStill/lineage/pkg/routes"
)

var schemas = map[string]*openapi.Schema{
	"Session": {
		Type:        "object",
		Description: "Current session: uploaded image, stage results, verdict, busy flags, and last error.",
	},
	"Layout": {
		Type:        "object",
		Description: "Node coordinates and edge render hints for the provenance graph.",
	},
	"BatchQueue": {
		Type:        "object",
		Description: "Queue items in order, derived counters, and whether a run is in progress.",
	},
	"BatchItems": {
		Type:  "array",
		Items: openapi.SchemaRef("BatchItem"),
	},
	"BatchItem": {
		Type:        "object",
		Description: "One queued image with its status, verdict, and score.",
	},
	"BatchStats": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"total":     {Type: "integer"},
			"done":      {Type: "integer"},
			"errored":   {Type: "integer"},
			"deepfakes": {Type: "integer"},
			"queued":    {Type: "integer"},
			"active":    {Type: "integer"},
		},
	},
	"Removed": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"removed": {Type: "integer"},
		},
	},
	"DashboardStats": {
		Type:        "object",
		Description: "Aggregate counts reported by the forensics service.",
	},
}

func stateOK(description string) map[int]*openapi.Response {
	return map[int]*openapi.Response{
		200: openapi.ResponseJSON(description, "Session"),
		409: openapi.ResponseRef("Conflict"),
		502: openapi.ResponseRef("BadGateway"),
	}
}

func stageOp(summary string) *openapi.Operation {
	return &openapi.Operation{
		Summary:   summary,
		Tags:      []string{"Session"},
		Responses: stateOK("Session after the stage"),
	}
}

var sessionSpec = struct {
	Get, Events, Layout, Run, Investigate *openapi.Operation
	Analyze, Graph, Social, Report, Reset *openapi.Operation
}{
	Get: &openapi.Operation{
		Summary: "Current session state",
		Tags:    []string{"Session"},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Session state", "Session"),
		},
	},
	Events: &openapi.Operation{
		Summary:     "Stream session state",
		Description: "WebSocket upgrade. Each message is the full session state.",
		Tags:        []string{"Session"},
		Responses: map[int]*openapi.Response{
			101: {Description: "Switching protocols"},
		},
	},
	Layout: &openapi.Operation{
		Summary: "Layered layout of the session's provenance graph",
		Tags:    []string{"Session"},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Layout", "Layout"),
			409: openapi.ResponseRef("Conflict"),
		},
	},
	Run: &openapi.Operation{
		Summary:     "Start a session: upload and analyze",
		Tags:        []string{"Session"},
		RequestBody: openapi.MultipartFiles("file", false),
		Responses:   uploadResponses(stateOK("Session after analysis")),
	},
	Investigate: &openapi.Operation{
		Summary:     "Start a session and run every stage",
		Tags:        []string{"Session"},
		RequestBody: openapi.MultipartFiles("file", false),
		Responses:   uploadResponses(stateOK("Session after report")),
	},
	Analyze: stageOp("Re-run analysis on the current image"),
	Graph:   stageOp("Build the provenance graph"),
	Social:  stageOp("Simulate social spread"),
	Report:  stageOp("Generate the forensic report"),
	Reset: &openapi.Operation{
		Summary: "Clear the session",
		Tags:    []string{"Session"},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Empty session", "Session"),
		},
	},
}

func uploadResponses(base map[int]*openapi.Response) map[int]*openapi.Response {
	base[400] = openapi.ResponseRef("BadRequest")
	base[413] = openapi.ResponseRef("TooLarge")
	base[415] = openapi.ResponseRef("BadRequest")
	return base
}

var itemID = openapi.PathParam("id", "uuid", "Queue item ID")

var batchSpec = struct {
	List, Enqueue, Stats, Run, Clear, RunItem, Remove *openapi.Operation
}{
	List: &openapi.Operation{
		Summary: "Queue items and counters",
		Tags:    []string{"Batch"},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Queue", "BatchQueue"),
		},
	},
	Enqueue: &openapi.Operation{
		Summary:     "Add images to the queue",
		Description: "Non-image parts are skipped.",
		Tags:        []string{"Batch"},
		RequestBody: openapi.MultipartFiles("files", true),
		Responses: map[int]*openapi.Response{
			201: openapi.ResponseJSON("Items added", "BatchItems"),
			400: openapi.ResponseRef("BadRequest"),
			413: openapi.ResponseRef("TooLarge"),
		},
	},
	Stats: &openapi.Operation{
		Summary: "Queue counters",
		Tags:    []string{"Batch"},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Counters", "BatchStats"),
		},
	},
	Run: &openapi.Operation{
		Summary:     "Process every queued item",
		Description: "Starts in the background. Poll the queue for progress.",
		Tags:        []string{"Batch"},
		Responses: map[int]*openapi.Response{
			202: openapi.ResponseJSON("Run started", "BatchQueue"),
			409: openapi.ResponseRef("Conflict"),
		},
	},
	Clear: &openapi.Operation{
		Summary: "Remove finished items",
		Tags:    []string{"Batch"},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Removed count", "Removed"),
		},
	},
	RunItem: &openapi.Operation{
		Summary:    "Process one queued or failed item",
		Tags:       []string{"Batch"},
		Parameters: []*openapi.Parameter{itemID},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Queue after processing", "BatchQueue"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
			409: openapi.ResponseRef("Conflict"),
		},
	},
	Remove: &openapi.Operation{
		Summary:    "Remove an item",
		Tags:       []string{"Batch"},
		Parameters: []*openapi.Parameter{itemID},
		Responses: map[int]*openapi.Response{
			204: {Description: "Removed"},
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
			409: openapi.ResponseRef("Conflict"),
		},
	},
}

var dashboardSpec = struct{ Stats *openapi.Operation }{
	Stats: &openapi.Operation{
		Summary: "Forensics service statistics",
		Tags:    []string{"Dashboard"},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Statistics", "DashboardStats"),
			502: openapi.ResponseRef("BadGateway"),
		},
	},
}

var previewSpec = struct{ Open *openapi.Operation }{
	Open: &openapi.Operation{
		Summary:    "Image bytes for a preview",
		Tags:       []string{"Previews"},
		Parameters: []*openapi.Parameter{openapi.PathParam("id", "", "Preview ID")},
		Responses: map[int]*openapi.Response{
			200: {Description: "Image bytes"},
			404: openapi.ResponseRef("NotFound"),
		},
	},
}

func newSpec(version, basePath string, groups []routes.Group) *openapi.Spec {
	spec := openapi.NewSpec("Lineage API", version)
	spec.Info.Description = "Image provenance and deepfake analysis against a remote forensics service."
	spec.AddServer(basePath)
	spec.Components.AddSchemas(schemas)
	routes.Describe(spec, groups...)
	return spec
}
