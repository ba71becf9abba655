package api

import (
	"encoding/json"
	"net/http"
)

type obj = map[string]interface{}

func ref(name string) obj {
	return obj{"$ref": "#/components/schemas/" + name}
}

func jsonContent(schema obj) obj {
	return obj{"application/json": obj{"schema": schema}}
}

func jsonResponse(description string, schema obj) obj {
	return obj{"description": description, "content": jsonContent(schema)}
}

func errorRef(description string) obj {
	return jsonResponse(description, ref("ErrorResponse"))
}

var identityParam = obj{
	"name":        "identity",
	"in":          "path",
	"required":    true,
	"description": "Agent identity that owns the notebook",
	"schema":      obj{"type": "string"},
}

// handleOpenAPISpec returns the OpenAPI 3.0 specification
func (s *Server) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := obj{
		"openapi": "3.0.0",
		"info": obj{
			"title":       "NFL Picker API",
			"description": "Drive weekly against-the-spread picking sessions and inspect agent notebooks",
			"version":     "1.0.0",
			"contact": obj{
				"name": "Oscillate Labs",
				"url":  "https://github.com/oscillatelabsllc/nflpicker",
			},
			"license": obj{
				"name": "MIT",
				"url":  "https://opensource.org/licenses/MIT",
			},
		},
		"servers": []obj{
			{
				"url":         "http://localhost:8080",
				"description": "Local development server",
			},
		},
		"paths": obj{
			"/health": obj{
				"get": obj{
					"summary":     "Health check",
					"operationId": "getHealth",
					"responses":   obj{"200": jsonResponse("Server is healthy", ref("Status"))},
				},
			},
			"/ready": obj{
				"get": obj{
					"summary":     "Readiness check",
					"description": "Verifies the storage backend answers",
					"operationId": "getReady",
					"responses": obj{
						"200": jsonResponse("Storage reachable", ref("Status")),
						"503": jsonResponse("Storage unavailable", ref("Status")),
					},
				},
			},
			"/api/v1/sessions": obj{
				"post": obj{
					"summary":     "Start a weekly session",
					"description": "Loads the week's slate and opens a session. Replaces any current session.",
					"operationId": "startSession",
					"requestBody": obj{"required": true, "content": jsonContent(ref("StartSessionRequest"))},
					"responses": obj{
						"200": jsonResponse("Session started", ref("SessionOverview")),
						"400": errorRef("Invalid request"),
						"404": errorRef("No slate for the week; run pull-lines"),
					},
				},
			},
			"/api/v1/session": obj{
				"get": obj{
					"summary":     "Current session overview",
					"operationId": "getSession",
					"responses": obj{
						"200": jsonResponse("Current session", ref("SessionOverview")),
						"404": errorRef("No session started"),
					},
				},
			},
			"/api/v1/session/search": obj{
				"post": obj{
					"summary":     "Budgeted web search",
					"description": "Successful searches consume one unit of the session budget. Refusals and failures are reported in the error field.",
					"operationId": "sessionSearch",
					"requestBody": obj{"required": true, "content": jsonContent(ref("SearchRequest"))},
					"responses":   obj{"200": jsonResponse("Search response", ref("SearchResponse"))},
				},
			},
			"/api/v1/session/picks": obj{
				"post": obj{
					"summary":     "Submit picks",
					"description": "Every game exactly once, units summing to 50, at least 1 unit per game",
					"operationId": "submitPicks",
					"requestBody": obj{"required": true, "content": jsonContent(ref("SubmitPicksRequest"))},
					"responses": obj{
						"200": jsonResponse("Picks accepted and recorded", ref("SubmitResult")),
						"409": errorRef("No session started"),
						"422": jsonResponse("Picks rejected; session stays open", ref("SubmitResult")),
					},
				},
			},
			"/api/v1/notebooks/{identity}": obj{
				"parameters": []obj{identityParam},
				"get": obj{
					"summary":     "Read a notebook",
					"operationId": "readNotebook",
					"responses":   obj{"200": jsonResponse("Notebook content", ref("NotebookContent"))},
				},
				"post": obj{
					"summary":     "Write to a notebook",
					"description": "Appends by default. Writes over the token ceiling return success=false and change nothing.",
					"operationId": "writeNotebook",
					"requestBody": obj{"required": true, "content": jsonContent(ref("WriteNotebookRequest"))},
					"responses":   obj{"200": jsonResponse("Write outcome", ref("WriteResult"))},
				},
			},
			"/api/v1/notebooks/{identity}/search": obj{
				"get": obj{
					"summary":     "Search a notebook",
					"operationId": "searchNotebook",
					"parameters": []obj{
						identityParam,
						{"name": "query", "in": "query", "required": true, "schema": obj{"type": "string"}},
					},
					"responses": obj{
						"200": jsonResponse("Formatted matches", ref("NotebookSearchResult")),
						"400": errorRef("Missing query"),
					},
				},
			},
			"/api/v1/notebooks/{identity}/stats": obj{
				"parameters": []obj{identityParam},
				"get": obj{
					"summary":     "Notebook statistics",
					"operationId": "notebookStats",
					"responses":   obj{"200": jsonResponse("Token usage", ref("NotebookStats"))},
				},
			},
		},
		"components": obj{
			"schemas": obj{
				"Status": obj{
					"type":       "object",
					"properties": obj{"status": obj{"type": "string"}, "error": obj{"type": "string"}},
				},
				"Game": obj{
					"type": "object",
					"properties": obj{
						"game_id":         obj{"type": "string"},
						"home_team":       obj{"type": "string"},
						"away_team":       obj{"type": "string"},
						"game_time":       obj{"type": "string", "format": "date-time"},
						"bookmaker_count": obj{"type": "integer"},
						"home_spread":     obj{"type": "number", "nullable": true},
						"away_spread":     obj{"type": "number", "nullable": true},
						"total":           obj{"type": "number", "nullable": true},
					},
				},
				"StartSessionRequest": obj{
					"type":     "object",
					"required": []string{"week"},
					"properties": obj{
						"week": obj{"type": "integer", "minimum": 1, "maximum": 18},
						"day":  obj{"type": "string", "description": "Optional weekday filter"},
					},
				},
				"SessionOverview": obj{
					"type": "object",
					"properties": obj{
						"session_id":         obj{"type": "string"},
						"week":               obj{"type": "integer"},
						"day":                obj{"type": "string"},
						"state":              obj{"type": "string", "enum": []string{"open", "closed"}},
						"games":              obj{"type": "array", "items": ref("Game")},
						"units_available":    obj{"type": "integer"},
						"min_units_per_game": obj{"type": "integer"},
						"max_units_per_game": obj{"type": "integer"},
						"searches_per_game":  obj{"type": "integer"},
						"searches_allowed":   obj{"type": "integer"},
						"searches_remaining": obj{"type": "integer"},
					},
				},
				"SearchRequest": obj{
					"type":     "object",
					"required": []string{"query"},
					"properties": obj{
						"query":           obj{"type": "string"},
						"include_domains": obj{"type": "array", "items": obj{"type": "string"}},
						"exclude_domains": obj{"type": "array", "items": obj{"type": "string"}},
						"category":        obj{"type": "string"},
					},
				},
				"SearchResponse": obj{
					"type": "object",
					"properties": obj{
						"results": obj{
							"type": "array",
							"items": obj{
								"type": "object",
								"properties": obj{
									"title":          obj{"type": "string"},
									"url":            obj{"type": "string"},
									"text":           obj{"type": "string"},
									"published_date": obj{"type": "string", "nullable": true},
								},
							},
						},
						"error": obj{"type": "string"},
					},
				},
				"SubmitPicksRequest": obj{
					"type":     "object",
					"required": []string{"predictions"},
					"properties": obj{
						"predictions": obj{
							"type": "object",
							"additionalProperties": obj{
								"type":     "object",
								"required": []string{"pick", "units"},
								"properties": obj{
									"pick":  obj{"type": "string"},
									"units": obj{"type": "integer", "minimum": 1},
								},
							},
						},
					},
				},
				"SubmitResult": obj{
					"type": "object",
					"properties": obj{
						"accepted": obj{"type": "boolean"},
						"location": obj{"type": "string"},
						"record":   obj{"type": "object"},
						"rejection": obj{
							"type": "object",
							"properties": obj{
								"reason":      obj{"type": "string", "enum": []string{"session_closed", "incomplete", "unit_total", "invalid_pick"}},
								"message":     obj{"type": "string"},
								"missing":     obj{"type": "array", "items": obj{"type": "string"}},
								"unexpected":  obj{"type": "array", "items": obj{"type": "string"}},
								"total_units": obj{"type": "integer"},
								"invalid":     obj{"type": "object", "additionalProperties": obj{"type": "string"}},
							},
						},
					},
				},
				"NotebookContent": obj{
					"type":       "object",
					"properties": obj{"identity": obj{"type": "string"}, "content": obj{"type": "string"}},
				},
				"WriteNotebookRequest": obj{
					"type":     "object",
					"required": []string{"content"},
					"properties": obj{
						"content": obj{"type": "string"},
						"append":  obj{"type": "boolean", "default": true},
						"week":    obj{"type": "integer"},
					},
				},
				"WriteResult": obj{
					"type": "object",
					"properties": obj{
						"success":          obj{"type": "boolean"},
						"message":          obj{"type": "string"},
						"token_count":      obj{"type": "integer"},
						"tokens_remaining": obj{"type": "integer"},
						"max_tokens":       obj{"type": "integer"},
					},
				},
				"NotebookSearchResult": obj{
					"type": "object",
					"properties": obj{
						"identity": obj{"type": "string"},
						"query":    obj{"type": "string"},
						"result":   obj{"type": "string"},
					},
				},
				"NotebookStats": obj{
					"type": "object",
					"properties": obj{
						"model":             obj{"type": "string"},
						"token_count":       obj{"type": "integer"},
						"tokens_remaining":  obj{"type": "integer"},
						"last_week_updated": obj{"type": "integer"},
						"has_content":       obj{"type": "boolean"},
					},
				},
				"ErrorResponse": obj{
					"type":       "object",
					"properties": obj{"error": obj{"type": "string"}},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
