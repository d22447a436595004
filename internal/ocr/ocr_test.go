package ocr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/docintake/internal/config"
)

func TestNewExtractor_Local(t *testing.T) {
	ext, err := NewExtractor(config.OCRConfig{Provider: "local"})
	require.NoError(t, err)
	assert.IsType(t, &LocalExtractor{}, ext)
}

func TestNewExtractor_DefaultIsLocal(t *testing.T) {
	ext, err := NewExtractor(config.OCRConfig{})
	require.NoError(t, err)
	assert.IsType(t, &LocalExtractor{}, ext)
}

func TestNewExtractor_MistralRequiresKey(t *testing.T) {
	_, err := NewExtractor(config.OCRConfig{Provider: "mistral"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral_api_key")
}

func TestNewExtractor_UnknownProvider(t *testing.T) {
	_, err := NewExtractor(config.OCRConfig{Provider: "tesseract"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

// writeFakePDF drops non-PDF bytes at a path. The mistral extractor only
// base64s the file, so content does not need to be a valid PDF.
func writeFakePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statement.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7 fake"), 0o644))
	return path
}

func TestMistralOCR_ExtractPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"pages":[
			{"index":1,"markdown":"second page"},
			{"index":0,"markdown":"first page"}
		]}`))
	}))
	defer srv.Close()

	m := NewMistralOCR("test-key", "", 0)
	m.endpoint = srv.URL

	pages, err := m.ExtractPages(context.Background(), writeFakePDF(t))
	require.NoError(t, err)
	require.Len(t, pages, 2)

	// Pages come back in index order regardless of response order.
	assert.Equal(t, 0, pages[0].Index)
	assert.Equal(t, "first page", pages[0].Text)
	assert.Equal(t, 1, pages[1].Index)
	assert.Equal(t, "second page", pages[1].Text)
}

func TestMistralOCR_RetriesOn503(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"pages":[{"index":0,"markdown":"ok"}]}`))
	}))
	defer srv.Close()

	m := NewMistralOCR("test-key", "", 0)
	m.endpoint = srv.URL
	m.retry.InitialBackoff = 1 // effectively no sleep
	m.retry.JitterFraction = 0

	pages, err := m.ExtractPages(context.Background(), writeFakePDF(t))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestMistralOCR_PermanentFailureDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewMistralOCR("bad-key", "", 0)
	m.endpoint = srv.URL

	_, err := m.ExtractPages(context.Background(), writeFakePDF(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestMistralOCR_MissingFile(t *testing.T) {
	m := NewMistralOCR("test-key", "", 0)
	_, err := m.ExtractPages(context.Background(), "/nonexistent/file.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read PDF")
}
