package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sayless/sayless/internal/server/middleware"
	"github.com/sayless/sayless/internal/service"
)

// LinkHandler exposes link creation, redirect, and info lookup.
type LinkHandler struct {
	links  *service.LinkService
	logger *slog.Logger
}

// NewLinkHandler creates a LinkHandler.
func NewLinkHandler(links *service.LinkService, logger *slog.Logger) *LinkHandler {
	return &LinkHandler{links: links, logger: logger}
}

// Create shortens a URL. The body is the raw target URL string; the
// response is 201 Created with a Location header pointing at the new
// (or deduplicated) short path and an empty body.
// POST /l/create
func (h *LinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	rawURL := strings.TrimSpace(string(body))

	remote, err := remoteAddr(r)
	if err != nil {
		h.logger.Error("unparseable remote address", "remote_addr", r.RemoteAddr, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	link, _, err := h.links.Create(r.Context(), rawURL, remote, middleware.BearerToken(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Location", "/l/"+link.ID)
	w.WriteHeader(http.StatusCreated)
}

// Redirect resolves a short id to its target.
// GET /l/{id}
func (h *LinkHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	target, err := h.links.Resolve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Info returns link metadata as JSON. The creator address appears only
// for callers whose credential satisfies viewIps.
// GET /l/{id}/info
func (h *LinkHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.links.Info(r.Context(), chi.URLParam(r, "id"), middleware.BearerToken(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
