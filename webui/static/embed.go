// Package static bundles the studio front-end into the binary.
//
// Contents:
//   - index.html (studio shell)
//   - css/studio.css (haunted theme)
//   - js/studio.js (snapshot rendering, API calls, WebSocket client, viewer)
package static

import (
	"embed"
	"io/fs"
)

//go:embed index.html css js
var StaticFS embed.FS

// GetFS returns the embedded filesystem.
func GetFS() fs.FS {
	return StaticFS
}

// ReadFile reads a file from the embedded filesystem.
func ReadFile(name string) ([]byte, error) {
	return StaticFS.ReadFile(name)
}
