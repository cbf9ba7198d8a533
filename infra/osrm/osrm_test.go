package osrm

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sal0-h/snoonu-smart-dispatch/core/geo"
	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
	"github.com/sal0-h/snoonu-smart-dispatch/infra/logger"
)

var (
	pointA = model.Coordinate{Lat: 25.285, Lng: 51.531}
	pointB = model.Coordinate{Lat: 25.300, Lng: 51.545}
)

func newClient(t *testing.T, url string) *Client {
	t.Helper()
	return New(Config{BaseURL: url, CacheSize: 100, DetourFactor: 1.4, AvgSpeedKmh: 35}, logger.NopLogger{})
}

func TestRouteBackend(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"code":"Ok","routes":[{"distance":2500,"duration":300}]}`)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	assert.InDelta(t, 2.5, c.Distance(pointA, pointB), 1e-9)
	assert.InDelta(t, 5.0, c.TravelTime(pointA, pointB), 1e-9)

	// Second lookup and the reverse direction hit the cache.
	c.Distance(pointA, pointB)
	c.Distance(pointB, pointA)
	assert.Equal(t, int64(1), calls.Load())
}

func TestFallbackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	want := geo.Haversine{AvgSpeedKmh: 35}.Distance(pointA, pointB) * 1.4
	assert.InDelta(t, want, c.Distance(pointA, pointB), 1e-9)
}

func TestFallbackOnNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"NoRoute","routes":[]}`)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	want := geo.Haversine{AvgSpeedKmh: 35}.Distance(pointA, pointB) * 1.4
	assert.InDelta(t, want, c.Distance(pointA, pointB), 1e-9)
}

func TestTableAndWarm(t *testing.T) {
	var routeCalls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case len(r.URL.Path) >= 6 && r.URL.Path[:6] == "/table":
			fmt.Fprint(w, `{"code":"Ok","distances":[[0,1000],[1000,0]],"durations":[[0,120],[120,0]]}`)
		default:
			routeCalls.Add(1)
			fmt.Fprint(w, `{"code":"Ok","routes":[{"distance":1000,"duration":120}]}`)
		}
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	dist, dur, err := c.Table([]model.Coordinate{pointA, pointB})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, dist[0][1], 1e-9)
	assert.InDelta(t, 2.0, dur[0][1], 1e-9)

	c.Warm([]model.Coordinate{pointA, pointB})
	assert.InDelta(t, 1.0, c.Distance(pointA, pointB), 1e-9)
	assert.Equal(t, int64(0), routeCalls.Load(), "warmed legs never hit the route endpoint")
}

func TestTableRejectsSinglePoint(t *testing.T) {
	c := newClient(t, "http://localhost:0")
	_, _, err := c.Table([]model.Coordinate{pointA})
	assert.Error(t, err)
}
