package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/sipico/vssv/internal/apierror"
)

// readyTimeout bounds the database probe behind /readyz.
const readyTimeout = 5 * time.Second

// VersionInfo is the body of /versionz.
type VersionInfo struct {
	Version string `json:"version"`
	Git     string `json:"git"`
}

// NewVersionInfo pairs version with the VCS revision embedded by the Go
// toolchain. The revision is "unknown" when the binary carries no VCS stamp.
func NewVersionInfo(version string) VersionInfo {
	info := VersionInfo{Version: version, Git: "unknown"}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			info.Git = s.Value
		}
	}
	return info
}

// HandleLivez reports that the process is serving requests.
// GET /livez
func (h *Handler) HandleLivez(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// HandleReadyz checks database connectivity.
// GET /readyz
// Returns 204 if the database answers, 500 otherwise.
func (h *Handler) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.writeError(w, r, apierror.New(apierror.KindPersistence, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleVersionz returns the running version.
// GET /versionz
func (h *Handler) HandleVersionz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Response write errors are unrecoverable
	json.NewEncoder(w).Encode(h.version)
}

// HandleNotFound renders the typed 404 for unknown routes and methods.
func (h *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, apierror.New(apierror.KindNotFound, nil))
}
