package api

import (
	"fmt"

	"github.com/wboerner/archivar/internal/config"
	"github.com/wboerner/archivar/pkg/openapi"
)

// buildSpec generates the OpenAPI document for the service's endpoints.
func buildSpec(cfg *config.Config) ([]byte, error) {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)

	spec.Components.AddSchemas(map[string]*openapi.Schema{
		"Outcome": {
			Type:        "object",
			Description: "One processing attempt for a document.",
			Properties: map[string]*openapi.Schema{
				"id":                 {Type: "string", Format: "uuid"},
				"document_id":        {Type: "integer"},
				"title":              {Type: "string"},
				"model_tier":         {Type: "string"},
				"level":              {Type: "string", Enum: []any{"high", "medium", "low"}},
				"status":             {Type: "string"},
				"score":              {Type: "number"},
				"input_tokens":       {Type: "integer"},
				"output_tokens":      {Type: "integer"},
				"cache_read_tokens":  {Type: "integer"},
				"cache_write_tokens": {Type: "integer"},
				"cost_usd":           {Type: "number"},
				"duration_ms":        {Type: "integer"},
				"error":              {Type: "string"},
				"resolved":           {Type: "object", Description: "Resolved classification and confidence breakdown"},
				"started_at":         {Type: "string", Format: "date-time"},
			},
		},
		"CostSummary": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"month":        {Type: "string", Example: "2026-08"},
				"total_usd":    {Type: "number"},
				"requests":     {Type: "integer"},
				"total_tokens": {Type: "integer"},
			},
		},
		"ReviewItem": {
			Type:        "object",
			Description: "Pending outcome paired with the document's current archive state.",
			Properties: map[string]*openapi.Schema{
				"document": {Type: "object"},
				"outcome":  openapi.SchemaRef("Outcome"),
			},
		},
		"ApplyCommand": {
			Type:        "object",
			Description: "Reviewer corrections. Absent fields are untouched; null clears.",
			Properties: map[string]*openapi.Schema{
				"title":          {Type: "string"},
				"date":           {Type: "string", Format: "date"},
				"correspondent":  {Type: "integer"},
				"document_type":  {Type: "integer"},
				"storage_path":   {Type: "integer"},
				"tags":           {Type: "array", Items: &openapi.Schema{Type: "integer"}},
				"fields":         {Type: "array", Items: &openapi.Schema{Type: "object"}},
				"remove_fields":  {Type: "array", Items: &openapi.Schema{Type: "integer"}},
			},
		},
		"PipelineResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"document_id":       {Type: "integer"},
				"status":            {Type: "string"},
				"level":             {Type: "string"},
				"score":             {Type: "number"},
				"cost_usd":          {Type: "number"},
				"error":             {Type: "string"},
				"create_candidates": {Type: "object"},
				"outcome":           openapi.SchemaRef("Outcome"),
			},
		},
		"PollerStatus": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"state":                {Type: "string", Enum: []any{"stopped", "idle", "running", "paused"}},
				"pause_reason":         {Type: "string"},
				"last_error":           {Type: "string"},
				"cycles":               {Type: "integer"},
				"processed":            {Type: "integer"},
				"failed":               {Type: "integer"},
				"skipped":              {Type: "integer"},
				"last_cycle_at":        {Type: "string", Format: "date-time"},
				"last_cycle_documents": {Type: "integer"},
			},
		},
	})

	spec.Paths["/outcomes"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List processing outcomes",
			Tags:    []string{"outcomes"},
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("status", "string", "Filter by pipeline status", false),
				openapi.QueryParam("level", "string", "Filter by confidence level", false),
				openapi.QueryParam("document_id", "integer", "Filter by document", false),
				openapi.QueryParam("model_tier", "string", "Filter by model identifier", false),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Paginated outcomes", "Outcome"),
			},
		},
	}

	spec.Paths["/outcomes/costs"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "Monthly reasoning spend",
			Tags:    []string{"outcomes"},
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("month", "string", "Calendar month (YYYY-MM), default current", false),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Aggregated cost", "CostSummary"),
				400: openapi.ResponseRef("BadRequest"),
			},
		},
	}

	spec.Paths["/outcomes/{id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Find outcome",
			Tags:       []string{"outcomes"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Outcome identifier")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Outcome", "Outcome"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/review"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List documents pending review",
			Tags:    []string{"review"},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Paginated pending outcomes", "Outcome"),
			},
		},
	}

	spec.Paths["/review/{documentId}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Review detail",
			Tags:       []string{"review"},
			Parameters: []*openapi.Parameter{documentIDParam()},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Pending outcome with document state", "ReviewItem"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/review/{documentId}/apply"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Apply reviewer corrections",
			Tags:        []string{"review"},
			Parameters:  []*openapi.Parameter{documentIDParam()},
			RequestBody: openapi.RequestBodyJSON("ApplyCommand", true),
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Recorded manual outcome", "Outcome"),
				404: openapi.ResponseRef("NotFound"),
				409: openapi.ResponseRef("Conflict"),
			},
		},
	}

	spec.Paths["/process/{documentId}"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary: "Run the pipeline for one document",
			Tags:    []string{"pipeline"},
			Parameters: []*openapi.Parameter{
				documentIDParam(),
				openapi.QueryParam("tier", "string", "Force a model tier (capable, fast) or a model id", false),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Pipeline result", "PipelineResult"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/poller"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "Poller status",
			Tags:    []string{"poller"},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Current state and counters", "PollerStatus"),
			},
		},
	}

	spec.Paths["/poller/pause"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary: "Pause polling",
			Tags:    []string{"poller"},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Current state and counters", "PollerStatus"),
			},
		},
	}

	spec.Paths["/poller/resume"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary: "Resume polling",
			Tags:    []string{"poller"},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Current state and counters", "PollerStatus"),
			},
		},
	}

	data, err := openapi.MarshalJSON(spec)
	if err != nil {
		return nil, fmt.Errorf("marshal openapi spec: %w", err)
	}
	return data, nil
}

func documentIDParam() *openapi.Parameter {
	return &openapi.Parameter{
		Name:        "documentId",
		In:          "path",
		Required:    true,
		Description: "Archive document identifier",
		Schema:      &openapi.Schema{Type: "integer"},
	}
}
