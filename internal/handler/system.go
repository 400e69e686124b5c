package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sayless/sayless/internal/config"
	"github.com/sayless/sayless/internal/store"
)

// SystemHandler serves the operational endpoints: effective
// configuration, service status, and the liveness probe.
type SystemHandler struct {
	cfg     *config.Config
	store   *store.Store
	version string
	started time.Time
	logger  *slog.Logger
}

// NewSystemHandler creates a SystemHandler.
func NewSystemHandler(cfg *config.Config, st *store.Store, version string, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{
		cfg:     cfg,
		store:   st,
		version: version,
		started: time.Now(),
		logger:  logger,
	}
}

type configInfoResponse struct {
	MaxStrikes  uint16           `json:"max_strikes"`
	IPRecording *ipRecordingInfo `json:"ip_recording"`
	Tokens      *tokensInfo      `json:"tokens"`
}

type ipRecordingInfo struct {
	RetentionPeriod        string `json:"retention_period"`
	RetentionCheckSchedule string `json:"retention_check_schedule"`
}

type tokensInfo struct {
	CreationRequiresAuth bool `json:"creation_requires_auth"`
}

// ConfigInfo reports the effective feature configuration. Plain text by
// default; JSON when the Accept header asks for it. Secrets and DSNs
// never appear here.
// GET /l/config_info
func (h *SystemHandler) ConfigInfo(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		resp := configInfoResponse{MaxStrikes: h.cfg.MaxStrikes}
		if h.cfg.IPRecording != nil {
			resp.IPRecording = &ipRecordingInfo{
				RetentionPeriod:        h.cfg.IPRecording.RetentionPeriod,
				RetentionCheckSchedule: h.cfg.IPRecording.RetentionCheckSchedule,
			}
		}
		if h.cfg.Tokens != nil {
			resp.Tokens = &tokensInfo{CreationRequiresAuth: h.cfg.Tokens.CreationRequiresAuth}
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "max_strikes: %d\n", h.cfg.MaxStrikes)
	if h.cfg.IPRecording != nil {
		fmt.Fprintf(w, "ip_recording: enabled (retention %s, schedule %q)\n",
			h.cfg.IPRecording.RetentionPeriod, h.cfg.IPRecording.RetentionCheckSchedule)
	} else {
		fmt.Fprintln(w, "ip_recording: disabled")
	}
	if h.cfg.Tokens != nil {
		fmt.Fprintf(w, "tokens: enabled (creation_requires_auth: %t)\n",
			h.cfg.Tokens.CreationRequiresAuth)
	} else {
		fmt.Fprintln(w, "tokens: disabled")
	}
}

type statusResponse struct {
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Links   int64  `json:"links"`
}

// Status reports version, uptime, and the stored link count. Plain text
// by default, JSON on request.
// GET /l/status
func (h *SystemHandler) Status(w http.ResponseWriter, r *http.Request) {
	links, err := h.store.CountLinks(r.Context())
	if err != nil {
		h.logger.Error("link count failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	uptime := time.Since(h.started).Round(time.Second)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, statusResponse{
			Version: h.version,
			Uptime:  uptime.String(),
			Links:   links,
		})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "sayless %s\nuptime: %s\nlinks: %d\n", h.version, uptime, links)
}

// Healthz is the liveness probe. It verifies the database connection and
// answers with a bare "ok".
// GET /healthz
func (h *SystemHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Database unreachable")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
