package handler

import (
	"encoding/json"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPIHandler serves the API document from /openapi.json. The
// document is marshaled once at construction; the surface is fixed for
// the life of the process.
type OpenAPIHandler struct {
	body []byte
	err  error
}

// NewOpenAPIHandler creates an OpenAPIHandler for the given document.
func NewOpenAPIHandler(doc *openapi3.T) *OpenAPIHandler {
	body, err := json.Marshal(doc)
	return &OpenAPIHandler{body: body, err: err}
}

// Serve writes the document.
// GET /openapi.json
func (h *OpenAPIHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if h.err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(h.body)
}
