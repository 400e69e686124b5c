// Package openapi generates the OpenAPI 3.1 document describing the
// sayless HTTP surface. The document is built once at startup and
// served as JSON from /openapi.json.
package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/sayless/sayless/internal/config"
)

// Generate builds the API document. Routes for disabled subsystems
// (tokens, strikes) are omitted so the document matches the running
// router exactly.
func Generate(cfg *config.Config, version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "sayless API",
			Description: "URL shortening service with capability-token access control.",
			Version:     version,
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:   "http",
			Scheme: "bearer",
		},
	}

	doc.Components.Schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
						},
					},
				},
			},
		},
	}

	doc.Components.Schemas["LinkInfo"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"id":         &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"hash":       &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: "Hex-encoded URL fingerprint."}},
				"link":       &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "uri"}},
				"created_at": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}},
				"created_by": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: "Creator address. Only present for callers with the viewIps permission."}},
			},
		},
	}

	doc.Paths = openapi3.NewPaths()

	addLinkPaths(doc, cfg)
	if cfg.TokensEnabled() {
		addTokenPaths(doc)
	}
	if cfg.RecordIPs() {
		addStrikePaths(doc)
	}
	addSystemPaths(doc)

	return doc
}

func addLinkPaths(doc *openapi3.T, cfg *config.Config) {
	createOp := &openapi3.Operation{
		Tags:        []string{"links"},
		Summary:     "Shorten a URL",
		Description: "The request body is the raw target URL. On success the Location header holds the short path.",
		OperationID: "create_link",
		RequestBody: &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Description: "Target URL",
				Required:    true,
				Content:     openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{"text/plain"}),
			},
		},
		Responses: newResponses("201", "Link created; short path in Location header", nil),
	}
	if cfg.CreationRequiresAuth() {
		createOp.Security = &openapi3.SecurityRequirements{{"bearerAuth": {}}}
	}
	doc.Paths.Set("/l/create", &openapi3.PathItem{Post: createOp})

	idParam := &openapi3.ParameterRef{
		Value: openapi3.NewPathParameter("id").WithSchema(openapi3.NewStringSchema()),
	}

	doc.Paths.Set("/l/{id}", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"links"},
			Summary:     "Redirect to the target URL",
			OperationID: "redirect_link",
			Parameters:  openapi3.Parameters{idParam},
			Responses:   newResponses("302", "Redirect to the stored URL", nil),
		},
	})

	doc.Paths.Set("/l/{id}/info", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"links"},
			Summary:     "Get link metadata",
			OperationID: "link_info",
			Parameters:  openapi3.Parameters{idParam},
			Responses: newResponses("200", "Link metadata",
				openapi3.NewSchemaRef("#/components/schemas/LinkInfo", nil)),
		},
	})
}

func addTokenPaths(doc *openapi3.T) {
	createSchema := &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"admin_perm":        &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
				"create_link_perm":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
				"create_token_perm": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
				"view_ips_perm":     &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
				"expires_at":        &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: "RFC 3339 or \"2006-01-02 15:04:05\". Defaults to one year from now."}},
			},
		},
	}

	doc.Paths.Set("/l/tokens/create", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"tokens"},
			Summary:     "Issue a new token",
			Description: "Requires the createToken permission. The response body is the raw token value, shown only once.",
			OperationID: "create_token",
			Security:    &openapi3.SecurityRequirements{{"bearerAuth": {}}},
			RequestBody: &openapi3.RequestBodyRef{
				Value: &openapi3.RequestBody{
					Description: "Permission flags and optional expiry",
					Content:     openapi3.NewContentWithJSONSchemaRef(createSchema),
				},
			},
			Responses: newResponses("201", "Raw token value", nil),
		},
	})

	doc.Paths.Set("/l/tokens/revoke", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"tokens"},
			Summary:     "Revoke a token",
			Description: "The request body is the token value to revoke. Callers may revoke their own token; revoking another requires admin.",
			OperationID: "revoke_token",
			Security:    &openapi3.SecurityRequirements{{"bearerAuth": {}}},
			RequestBody: &openapi3.RequestBodyRef{
				Value: &openapi3.RequestBody{
					Description: "Token value to revoke",
					Required:    true,
					Content:     openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{"text/plain"}),
				},
			},
			Responses: newResponses("200", "Token revoked", nil),
		},
	})
}

func addStrikePaths(doc *openapi3.T) {
	reportSchema := &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"origin", "amount"},
			Properties: openapi3.Schemas{
				"origin": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: "IPv4 or IPv6 address."}},
				"amount": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
			},
		},
	}

	doc.Paths.Set("/l/strikes/report", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"strikes"},
			Summary:     "Report strikes against an origin",
			Description: "Requires the admin permission. Returns the origin's updated strike total.",
			OperationID: "report_strikes",
			Security:    &openapi3.SecurityRequirements{{"bearerAuth": {}}},
			RequestBody: &openapi3.RequestBodyRef{
				Value: &openapi3.RequestBody{
					Required: true,
					Content:  openapi3.NewContentWithJSONSchemaRef(reportSchema),
				},
			},
			Responses: newResponses("200", "Updated strike total", reportSchema),
		},
	})
}

func addSystemPaths(doc *openapi3.T) {
	doc.Paths.Set("/l/config_info", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "Effective feature configuration",
			Description: "Plain text by default; JSON when Accept includes application/json.",
			OperationID: "config_info",
			Responses:   newResponses("200", "Configuration summary", nil),
		},
	})
	doc.Paths.Set("/l/status", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "Service status",
			Description: "Version, uptime, and link count. Plain text by default; JSON when Accept includes application/json.",
			OperationID: "status",
			Responses:   newResponses("200", "Status summary", nil),
		},
	})
	doc.Paths.Set("/healthz", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "Liveness probe",
			OperationID: "healthz",
			Responses:   newResponses("200", "Service healthy", nil),
		},
	})
}

// newResponses builds a Responses map with one success response and the
// standard error responses.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	success := &openapi3.Response{Description: &successDesc}
	if schema != nil {
		success.Content = openapi3.NewContentWithJSONSchemaRef(schema)
	}
	responses.Set(statusCode, &openapi3.ResponseRef{Value: success})

	errorRef := openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)
	for code, desc := range map[string]string{
		"400": "Bad request",
		"401": "Unauthorized",
		"403": "Forbidden",
		"404": "Not found",
		"500": "Internal server error",
	} {
		d := desc
		responses.Set(code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &d,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}

	return responses
}
