//go:build ui_embed

// Package ui serves the capture kiosk frontend.
package ui

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// Build with: go build -tags ui_embed .
// Requires: cd ui && pnpm build

//go:embed all:dist
var distFS embed.FS

// Handler serves the embedded frontend. Unknown extensionless paths fall
// back to index.html for client-side routing.
func Handler() (http.Handler, error) {
	fsys, err := fs.Sub(distFS, "dist")
	if err != nil {
		return nil, err
	}
	files := http.FileServer(http.FS(fsys))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := path.Clean(r.URL.Path)
		if isFile(fsys, strings.TrimPrefix(p, "/")) {
			if strings.HasPrefix(p, "/assets/") {
				// Vite fingerprints everything under assets/
				w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			}
			files.ServeHTTP(w, r)
			return
		}
		if isAssetPath(p) {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		r.URL.Path = "/"
		files.ServeHTTP(w, r)
	}), nil
}

func isFile(fsys fs.FS, name string) bool {
	stat, err := fs.Stat(fsys, name)
	return err == nil && !stat.IsDir()
}
