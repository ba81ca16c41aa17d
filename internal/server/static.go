package server

import (
	"net/http"
	"os"
	"path/filepath"
)

// SPAHandler serves the single-page app bundle. Paths that do not match
// a file fall back to index.html so client-side routes work on reload.
type SPAHandler struct {
	dir        string
	fileServer http.Handler
}

func NewSPAHandler(dir string) *SPAHandler {
	return &SPAHandler{
		dir:        dir,
		fileServer: http.FileServer(http.Dir(dir)),
	}
}

func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(h.dir, filepath.Clean("/"+r.URL.Path))

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.ServeFile(w, r, filepath.Join(h.dir, "index.html"))
		return
	}

	h.fileServer.ServeHTTP(w, r)
}
