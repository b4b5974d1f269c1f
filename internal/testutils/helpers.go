// Package testutils holds fixtures shared by package tests.
package testutils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// PNG encodes a w x h gray gradient.
func PNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) * 255 / (w + h))})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img), "Failed to encode PNG fixture")
	return buf.Bytes()
}

// WriteFiles creates a temporary directory holding files and returns its path.
// It fails the test immediately on error.
func WriteFiles(t *testing.T, files map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for name, data := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, data, 0644), "Failed to write fixture %s", name)
	}
	return dir
}

// ImageServer serves body on /{name}. When header is not empty, requests without
// header: value are rejected with 401.
func ImageServer(t *testing.T, body []byte, header, value string) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/{name}", func(w http.ResponseWriter, r *http.Request) {
		if header != "" && r.Header.Get(header) != value {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write(body)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}
