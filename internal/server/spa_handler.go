package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// SPAMiddleware wraps an http.Handler to serve a Single Page Application.
// API, stream and probe paths pass through; other paths are served from
// staticPath, falling back to index.html for client-side routes.
func SPAMiddleware(next http.Handler, staticPath string) http.Handler {
	files := http.FileServer(http.Dir(staticPath))
	indexPath := filepath.Join(staticPath, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") ||
			r.URL.Path == "/ws" ||
			r.URL.Path == "/healthz" ||
			r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		if r.URL.Path == "/" {
			http.ServeFile(w, r, indexPath)
			return
		}

		file := filepath.Join(staticPath, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(file); err != nil || info.IsDir() {
			http.ServeFile(w, r, indexPath)
			return
		}

		files.ServeHTTP(w, r)
	})
}
