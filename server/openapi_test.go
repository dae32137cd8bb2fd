package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAPI(t *testing.T) {
	t.Parallel()

	s := &Server{
		logger: noopLogger,
	}

	t.Run("document served", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		s.OpenAPI(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", http.NoBody))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, openAPIETag, w.Header().Get("ETag"))
		assert.Contains(t, w.Body.String(), "openapi: 3.0.3")
	})

	t.Run("not modified", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/openapi.yaml", http.NoBody)
		req.Header.Set("If-None-Match", openAPIETag)

		w := httptest.NewRecorder()
		s.OpenAPI(w, req)

		assert.Equal(t, http.StatusNotModified, w.Code)
		assert.Empty(t, w.Body.String())
	})
}
