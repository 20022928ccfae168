//go:build !ui_embed

// Package ui serves the capture kiosk frontend. Without the ui_embed tag
// the root redirects to the API docs.
package ui

import (
	"net/http"
	"path"
)

// Handler redirects page requests to /docs and 404s asset requests.
func Handler() (http.Handler, error) {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAssetPath(path.Clean(r.URL.Path)) {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/docs", http.StatusFound)
	}), nil
}
