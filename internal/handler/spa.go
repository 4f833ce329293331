// Package handler contains HTTP request handlers for the notebook API.
//
// A handler is the glue between HTTP and the service layer:
//  1. Parse the request (path parameters, query string, JSON body)
//  2. Call the service
//  3. Write the response through writeJSON / writeError
//
// Handlers hold no business rules.
package handler

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// SPAHandler serves a built single-page frontend from a directory.
//
// FALLBACK ROUTING:
// The frontend owns its own routes (/notes/12, /settings, ...). A browser
// refresh on such a URL reaches the server, which has no file by that name,
// so any path that is not a real file is answered with index.html and the
// frontend router takes over. Existing files (JS bundles, CSS, images) are
// served as-is by http.FileServer.
type SPAHandler struct {
	dir    string
	files  http.Handler
	logger *slog.Logger
}

// NewSPAHandler checks that dir contains an index.html and returns a handler
// for it.
func NewSPAHandler(dir string, logger *slog.Logger) (*SPAHandler, error) {
	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		return nil, err
	}
	return &SPAHandler{
		dir:    dir,
		files:  http.FileServer(http.Dir(dir)),
		logger: logger,
	}, nil
}

func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if name != "/" && !strings.HasSuffix(name, "/") {
		info, err := os.Stat(filepath.Join(h.dir, filepath.FromSlash(name)))
		if err == nil && !info.IsDir() {
			h.files.ServeHTTP(w, r)
			return
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			h.logger.Error("failed to stat static file",
				slog.String("path", name),
				slog.String("error", err.Error()),
			)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, filepath.Join(h.dir, "index.html"))
}
