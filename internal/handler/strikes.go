package handler

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/sayless/sayless/internal/model"
	"github.com/sayless/sayless/internal/server/middleware"
	"github.com/sayless/sayless/internal/service"
)

// StrikeHandler exposes the administrative strike report surface. Every
// operation requires the admin permission; the link pipeline itself only
// ever reads the ledger.
type StrikeHandler struct {
	strikes *service.StrikeService
	tokens  *service.TokenService
	logger  *slog.Logger
}

// NewStrikeHandler creates a StrikeHandler.
func NewStrikeHandler(strikes *service.StrikeService, tokens *service.TokenService, logger *slog.Logger) *StrikeHandler {
	return &StrikeHandler{strikes: strikes, tokens: tokens, logger: logger}
}

type strikeReportParams struct {
	Origin string `json:"origin"`
	Amount uint16 `json:"amount"`
}

type strikeReportResponse struct {
	Origin string `json:"origin"`
	Amount uint16 `json:"amount"`
}

// Report raises the strike count for an origin address and returns the
// updated total.
// POST /l/strikes/report
func (h *StrikeHandler) Report(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.CheckPermission(r.Context(), middleware.BearerToken(r), model.PermAdmin); err != nil {
		writeServiceError(w, err)
		return
	}

	var params strikeReportParams
	if err := readJSON(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	addr, err := netip.ParseAddr(params.Origin)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid origin address")
		return
	}
	if params.Amount == 0 {
		writeError(w, http.StatusBadRequest, "Amount must be positive")
		return
	}

	origin, err := service.EncodeOrigin(addr.Unmap())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	total, err := h.strikes.Report(r.Context(), origin, params.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, strikeReportResponse{
		Origin: addr.Unmap().String(),
		Amount: total,
	})
}
