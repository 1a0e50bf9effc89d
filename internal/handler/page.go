package handler

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// PageHandler serves the single-page client for any GET the API does not own.
// With no static directory configured it answers 404.
type PageHandler struct {
	dir       string
	indexPath string
	files     http.Handler
	logger    *slog.Logger
}

// NewPageHandler creates a page handler rooted at staticDir; staticDir may be empty
func NewPageHandler(staticDir string, logger *slog.Logger) *PageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &PageHandler{logger: logger}
	if staticDir != "" {
		h.dir = staticDir
		h.indexPath = filepath.Join(staticDir, "index.html")
		h.files = http.FileServer(http.Dir(staticDir))
	}
	return h
}

func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.files == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	// real assets first, index.html for everything else
	if r.URL.Path != "/" {
		asset := filepath.Join(h.dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if fi, err := os.Stat(asset); err == nil && !fi.IsDir() {
			h.files.ServeHTTP(w, r)
			return
		}
	}

	if _, err := os.Stat(h.indexPath); err != nil {
		h.logger.Warn("index page missing", slog.String("path", h.indexPath))
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, h.indexPath)
}
