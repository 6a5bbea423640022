package fscontract

import (
	"os"
	"path/filepath"
	"strings"
)

// WriteLatestPointer records manifestShort-manifestHash as the most
// recently compiled build for a pipeline slug, atomically.
func WriteLatestPointer(layout Layout, slug, manifestShort, manifestHash string) error {
	path := layout.LatestPointerPath(slug)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	content := manifestShort + "-" + manifestHash + "\n"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadLatestPointer returns the manifestShort and manifestHash of the
// most recently compiled build for a pipeline slug.
func ReadLatestPointer(layout Layout, slug string) (manifestShort, manifestHash string, ok bool) {
	data, err := os.ReadFile(layout.LatestPointerPath(slug))
	if err != nil {
		return "", "", false
	}
	trimmed := strings.TrimSpace(string(data))
	parts := strings.SplitN(trimmed, "-", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
