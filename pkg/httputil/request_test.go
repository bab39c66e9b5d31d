package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(`{"name":"Website"}`))
		var p payload
		require.NoError(t, ParseJSON(req, &p))
		assert.Equal(t, "Website", p.Name)
	})

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(`{`))
		var p payload
		assert.Error(t, ParseJSON(req, &p))
	})
}

func TestParsePathInt64(t *testing.T) {
	router := mux.NewRouter()
	var got int64
	var gotErr error
	router.HandleFunc("/projects/{project_id}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = ParsePathInt64(r, "project_id")
	})

	t.Run("valid id", func(t *testing.T) {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/projects/42", nil))
		require.NoError(t, gotErr)
		assert.Equal(t, int64(42), got)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/projects/abc", nil))
		assert.Error(t, gotErr)
	})
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/tasks?limit=25", nil)

	limit, err := ParseQueryInt(req, "limit", 20)
	require.NoError(t, err)
	assert.Equal(t, 25, limit)

	offset, err := ParseQueryInt(req, "offset", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, offset, "missing param falls back to default")

	bad := httptest.NewRequest(http.MethodGet, "/tasks?limit=lots", nil)
	_, err = ParseQueryInt(bad, "limit", 20)
	assert.Error(t, err)
}

func TestValidators(t *testing.T) {
	t.Run("RequireNonEmpty", func(t *testing.T) {
		rec := httptest.NewRecorder()
		assert.True(t, RequireNonEmpty(rec, "Website", "name"))

		rec = httptest.NewRecorder()
		assert.False(t, RequireNonEmpty(rec, "", "name"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("RequirePositive", func(t *testing.T) {
		rec := httptest.NewRecorder()
		assert.True(t, RequirePositive(rec, 5, "project_id"))

		rec = httptest.NewRecorder()
		assert.False(t, RequirePositive(rec, 0, "project_id"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("generates id when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("propagates incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	})
}
