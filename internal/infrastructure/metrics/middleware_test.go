package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/", "/"},
		{"/health/", "/health"},
		{"/api/v1/data/stocks", "/api/v1/data/{source}"},
		{"/api/v1/widgets/abc/retry", "/api/v1/widgets/*"},
		{"/api/v1/settings", "/api/v1/*"},
		{"/favicon.ico", "/unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePath(tt.in), tt.in)
	}
}

func TestRouteLabelUsesMuxTemplate(t *testing.T) {
	r := mux.NewRouter()
	var label string
	r.HandleFunc("/api/v1/widgets/{id}", func(w http.ResponseWriter, req *http.Request) {
		label = routeLabel(req)
		w.WriteHeader(http.StatusNoContent)
	})
	r.Use(HTTPMetricsMiddleware)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/widgets/123", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "/api/v1/widgets/{id}", label)
}
