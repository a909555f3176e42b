package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"vodcast/internal/config"
	"vodcast/internal/handler/http/respond"
)

// maxTLSUploadBytes bounds POST /config/tls/upload (spec.md §6: "max 10 MiB").
const maxTLSUploadBytes = 10 << 20

// ConfigHandler implements GET /config, PUT /config/{section},
// POST /config/tls/upload, and POST /config/restart (spec.md §6). It owns
// the single in-memory Config the rest of the process was wired from at
// startup, guarding reads/writes with a mutex since the HTTP server
// handles requests concurrently while the scheduler and updater read feed
// configuration from their own copies.
type ConfigHandler struct {
	mu       sync.RWMutex
	cfg      *config.Config
	path     string
	shutdown chan struct{}
}

// NewConfigHandler returns a ConfigHandler serving and persisting cfg at
// path. shutdown is closed exactly once, by POST /config/restart.
func NewConfigHandler(cfg *config.Config, path string, shutdown chan struct{}) *ConfigHandler {
	return &ConfigHandler{cfg: cfg, path: path, shutdown: shutdown}
}

// Get implements GET /config. A "?format=yaml" query parameter renders the
// effective config as YAML instead of JSON, so operators can diff it by eye
// against the TOML file on disk (config.RenderYAML).
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if r.URL.Query().Get("format") == "yaml" {
		body, err := config.RenderYAML(h.cfg)
		if err != nil {
			respond.SafeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
		return
	}
	respond.JSON(w, http.StatusOK, h.cfg)
}

// UpdateSection implements PUT /config/{section}: server, storage,
// downloader, history, tokens, or cleanup may each be replaced wholesale,
// then the file is rewritten with a backup, atomically (spec.md §6).
func (h *ConfigHandler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	section := r.PathValue("section")

	h.mu.Lock()
	defer h.mu.Unlock()

	var decodeErr error
	switch section {
	case "server":
		decodeErr = json.NewDecoder(r.Body).Decode(&h.cfg.Server)
	case "storage":
		decodeErr = json.NewDecoder(r.Body).Decode(&h.cfg.Storage)
	case "downloader":
		decodeErr = json.NewDecoder(r.Body).Decode(&h.cfg.Downloader)
	case "history":
		decodeErr = json.NewDecoder(r.Body).Decode(&h.cfg.History)
	case "tokens":
		decodeErr = json.NewDecoder(r.Body).Decode(&h.cfg.Tokens)
	case "cleanup":
		decodeErr = json.NewDecoder(r.Body).Decode(&h.cfg.Cleanup)
	default:
		respond.SafeError(w, http.StatusBadRequest, fmt.Errorf("unknown config section %q", section))
		return
	}
	if decodeErr != nil {
		respond.SafeError(w, http.StatusBadRequest, decodeErr)
		return
	}

	if err := config.Save(h.path, h.cfg); err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, h.cfg)
}

// UploadTLS implements POST /config/tls/upload: a multipart upload of a
// certificate and key, the key written owner-only (spec.md §6).
func (h *ConfigHandler) UploadTLS(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTLSUploadBytes)
	if err := r.ParseMultipartForm(maxTLSUploadBytes); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	certDir := filepath.Dir(h.path)
	certPath, err := saveUploadedFile(r, "cert", certDir, "tls.crt", 0o644)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	keyPath, err := saveUploadedFile(r, "key", certDir, "tls.key", 0o600)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	h.cfg.Server.TLS.Enabled = true
	h.cfg.Server.TLS.CertFile = certPath
	h.cfg.Server.TLS.KeyFile = keyPath
	if err := config.Save(h.path, h.cfg); err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"cert_file": certPath, "key_file": keyPath})
}

func saveUploadedFile(r *http.Request, field, dir, name string, perm os.FileMode) (string, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	defer file.Close()

	dest := filepath.Join(dir, name)
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		return "", err
	}
	return dest, nil
}

// Restart implements POST /config/restart: it signals process shutdown,
// trusting a supervisor to restart it (spec.md §6). A second call after the
// channel is already closed is a no-op, not a panic.
func (h *ConfigHandler) Restart(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.shutdown:
	default:
		close(h.shutdown)
	}
	w.WriteHeader(http.StatusAccepted)
}

// RegisterConfigRoutes wires h's methods onto mux under /config.
func RegisterConfigRoutes(mux *http.ServeMux, h *ConfigHandler) {
	mux.HandleFunc("GET /config", h.Get)
	mux.HandleFunc("PUT /config/{section}", h.UpdateSection)
	mux.HandleFunc("POST /config/tls/upload", h.UploadTLS)
	mux.HandleFunc("POST /config/restart", h.Restart)
}
