package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	route  string
	status int
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (o *recordingObserver) ObserveRequest(route string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.obs = append(o.obs, observation{route: route, status: status})
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	observer := &recordingObserver{}

	r := chi.NewRouter()
	r.Use(Metrics(observer))
	r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/products/abc", "/health", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Len(t, observer.obs, 3)
	assert.Equal(t, observation{route: "/products/{id}", status: http.StatusNotFound}, observer.obs[0])
	assert.Equal(t, observation{route: "/health", status: http.StatusOK}, observer.obs[1])
	assert.Equal(t, http.StatusNotFound, observer.obs[2].status)
}
