package ui

import (
	"path"
	"strings"
)

// isAssetPath reports whether p names a file rather than a client route.
func isAssetPath(p string) bool {
	return strings.Contains(path.Base(p), ".")
}
