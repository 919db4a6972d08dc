package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the Climate Odds API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Climate Odds API",
			"description": "Historical weather unusualness analysis over multi-decade daily archives, with asynchronous analysis jobs",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Climate Odds Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/analyze": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Submit an analysis",
					"description": "Creates an analysis job and returns its id immediately; the fetch and aggregation run detached",
					"parameters": []map[string]interface{}{
						{
							"name":        "X-User-ID",
							"in":          "header",
							"description": "Authenticated owner identity, set by the auth gateway",
							"required":    true,
							"schema":      map[string]string{"type": "string"},
						},
					},
					"requestBody": map[string]interface{}{
						"required": true,
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{
								"schema": map[string]interface{}{
									"type": "object",
									"properties": map[string]interface{}{
										"latitude":         map[string]interface{}{"type": "number", "minimum": -90, "maximum": 90},
										"longitude":        map[string]interface{}{"type": "number", "minimum": -180, "maximum": 180},
										"month":            map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 12},
										"day":              map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 31},
										"start_year":       map[string]interface{}{"type": "integer", "minimum": 1981},
										"end_year":         map[string]interface{}{"type": "integer", "minimum": 1981},
										"half_window_days": map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 30, "default": 10},
										"factors": map[string]interface{}{
											"type": "array",
											"items": map[string]interface{}{
												"type": "string",
												"enum": []string{"temperature", "precipitation", "windspeed", "humidity", "comfort"},
											},
										},
									},
								},
							},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Job accepted",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"analysis_id": map[string]string{"type": "string", "format": "uuid"},
											"status":      map[string]string{"type": "string"},
										},
									},
								},
							},
						},
						"401": map[string]interface{}{"description": "Missing user identity"},
						"422": map[string]interface{}{"description": "Request failed validation; no job was created"},
					},
				},
			},
			"/api/analyze/{id}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get an analysis",
					"description": "Returns the job's current status and, once terminal, its result payload or error detail",
					"parameters": []map[string]interface{}{
						{
							"name":     "X-User-ID",
							"in":       "header",
							"required": true,
							"schema":   map[string]string{"type": "string"},
						},
						{
							"name":     "id",
							"in":       "path",
							"required": true,
							"schema":   map[string]string{"type": "string", "format": "uuid"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Job found",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"id":              map[string]string{"type": "string", "format": "uuid"},
											"user_id":         map[string]string{"type": "string"},
											"status":          map[string]interface{}{"type": "string", "enum": []string{"running", "ok", "error"}},
											"created_at":      map[string]string{"type": "string", "format": "date-time"},
											"duration_ms":     map[string]interface{}{"type": "integer", "nullable": true},
											"params_json":     map[string]interface{}{"type": "object"},
											"result_json":     map[string]interface{}{"type": "object", "nullable": true},
											"result_hash":     map[string]interface{}{"type": "string", "nullable": true},
											"model_version":   map[string]string{"type": "string"},
											"dataset_version": map[string]string{"type": "string"},
											"response_status": map[string]interface{}{"type": "integer", "nullable": true},
										},
									},
								},
							},
						},
						"404": map[string]interface{}{"description": "Unknown id, or the job belongs to another user"},
					},
				},
			},
			"/api/analyze/history": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List the caller's analyses",
					"description": "Paginated history, newest first",
					"parameters": []map[string]interface{}{
						{
							"name":     "X-User-ID",
							"in":       "header",
							"required": true,
							"schema":   map[string]string{"type": "string"},
						},
						{
							"name":        "page",
							"in":          "query",
							"description": "1-based page number (default: 1)",
							"required":    false,
							"schema":      map[string]interface{}{"type": "integer", "default": 1},
						},
						{
							"name":        "page_size",
							"in":          "query",
							"description": "Items per page, 1-100 (default: 20)",
							"required":    false,
							"schema":      map[string]interface{}{"type": "integer", "default": 20},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"page":      map[string]string{"type": "integer"},
											"page_size": map[string]string{"type": "integer"},
											"total":     map[string]string{"type": "integer"},
											"items": map[string]interface{}{
												"type": "array",
												"items": map[string]interface{}{
													"type": "object",
													"properties": map[string]interface{}{
														"id":         map[string]string{"type": "string", "format": "uuid"},
														"status":     map[string]string{"type": "string"},
														"created_at": map[string]string{"type": "string", "format": "date-time"},
													},
												},
											},
										},
									},
								},
							},
						},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API is running",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "API is healthy",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"status": map[string]string{"type": "string"},
										},
									},
								},
							},
						},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
