// Package osrm implements a road-distance Oracle backed by an OSRM routing
// server. Failures never surface to callers: every lookup falls back to
// Haversine distance inflated by a detour factor.
package osrm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sal0-h/snoonu-smart-dispatch/core/geo"
	"github.com/sal0-h/snoonu-smart-dispatch/core/logger"
	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
)

// Config parameterizes the OSRM client.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	CacheSize    int
	DetourFactor float64
	AvgSpeedKmh  float64
}

// Client is a road-distance geo.TableOracle. The route cache is symmetric:
// a hit on (a,b) also answers (b,a).
type Client struct {
	base    string
	http    *http.Client
	detour  float64
	fall    geo.Haversine
	maxSize int
	log     logger.Logger

	mu    sync.Mutex
	cache map[cacheKey]legResult
	keys  []cacheKey
}

type cacheKey struct{ aLat, aLng, bLat, bLng float64 }

type legResult struct{ km, mins float64 }

// New builds an OSRM client. Zero-valued config fields get defaults
// matching the public demo server.
func New(cfg Config, log logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://router.project-osrm.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 10000
	}
	if cfg.DetourFactor <= 0 {
		cfg.DetourFactor = 1.4
	}
	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		detour:  cfg.DetourFactor,
		fall:    geo.Haversine{AvgSpeedKmh: cfg.AvgSpeedKmh},
		maxSize: cfg.CacheSize,
		log:     log,
		cache:   make(map[cacheKey]legResult),
	}
}

// Distance implements geo.Oracle using road distance.
func (c *Client) Distance(a, b model.Coordinate) float64 {
	return c.leg(a, b).km
}

// TravelTime implements geo.Oracle using road travel time.
func (c *Client) TravelTime(a, b model.Coordinate) float64 {
	return c.leg(a, b).mins
}

func (c *Client) leg(a, b model.Coordinate) legResult {
	if r, ok := c.lookup(a, b); ok {
		return r
	}
	r, err := c.route(a, b)
	if err != nil {
		c.log.Warnf("osrm route failed, using haversine fallback: %v", err)
		km := c.fall.Distance(a, b) * c.detour
		return legResult{km: km, mins: geo.TravelMinutes(km, c.fall.AvgSpeedKmh)}
	}
	c.store(a, b, r)
	return r
}

// key rounds coordinates to 5 decimals (about 1 m) so nearby floats share a
// cache slot.
func key(a, b model.Coordinate) cacheKey {
	r := func(v float64) float64 { return float64(int64(v*1e5)) / 1e5 }
	return cacheKey{r(a.Lat), r(a.Lng), r(b.Lat), r(b.Lng)}
}

func (c *Client) lookup(a, b model.Coordinate) (legResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.cache[key(a, b)]; ok {
		return r, true
	}
	r, ok := c.cache[key(b, a)]
	return r, ok
}

func (c *Client) store(a, b model.Coordinate, r legResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.cache) >= c.maxSize {
		// Evict the oldest tenth.
		n := c.maxSize / 10
		if n < 1 {
			n = 1
		}
		for _, k := range c.keys[:n] {
			delete(c.cache, k)
		}
		c.keys = c.keys[n:]
	}
	k := key(a, b)
	if _, ok := c.cache[k]; !ok {
		c.cache[k] = r
		c.keys = append(c.keys, k)
	}
}

type routeResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// route queries /route/v1/driving. OSRM expects lng,lat coordinate order.
func (c *Client) route(a, b model.Coordinate) (legResult, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false",
		c.base, a.Lng, a.Lat, b.Lng, b.Lat)
	resp, err := c.http.Get(url)
	if err != nil {
		return legResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return legResult{}, fmt.Errorf("osrm returned %d", resp.StatusCode)
	}
	var parsed routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return legResult{}, err
	}
	if parsed.Code != "Ok" || len(parsed.Routes) == 0 {
		return legResult{}, fmt.Errorf("osrm returned no route: %s", parsed.Code)
	}
	return legResult{km: parsed.Routes[0].Distance / 1000, mins: parsed.Routes[0].Duration / 60}, nil
}

type tableResponse struct {
	Code      string      `json:"code"`
	Distances [][]float64 `json:"distances"`
	Durations [][]float64 `json:"durations"`
}

// Table implements geo.TableOracle through /table/v1/driving, fetching all
// pairwise legs in one request.
func (c *Client) Table(points []model.Coordinate) ([][]float64, [][]float64, error) {
	if len(points) < 2 {
		return nil, nil, fmt.Errorf("table needs at least 2 points")
	}
	var sb strings.Builder
	for i, p := range points {
		if i > 0 {
			sb.WriteByte(';')
		}
		fmt.Fprintf(&sb, "%f,%f", p.Lng, p.Lat)
	}
	url := fmt.Sprintf("%s/table/v1/driving/%s?annotations=distance,duration", c.base, sb.String())
	resp, err := c.http.Get(url)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("osrm returned %d", resp.StatusCode)
	}
	var parsed tableResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, nil, err
	}
	if parsed.Code != "Ok" {
		return nil, nil, fmt.Errorf("osrm table returned error: %s", parsed.Code)
	}
	dist := make([][]float64, len(parsed.Distances))
	dur := make([][]float64, len(parsed.Durations))
	for i, row := range parsed.Distances {
		dist[i] = make([]float64, len(row))
		for j, v := range row {
			dist[i][j] = v / 1000
		}
	}
	for i, row := range parsed.Durations {
		dur[i] = make([]float64, len(row))
		for j, v := range row {
			dur[i][j] = v / 60
		}
	}
	return dist, dur, nil
}

// Warm primes the route cache with all pairwise legs for the given points,
// using one Table call instead of O(n^2) route calls. Errors are logged and
// swallowed; lookups simply fall back later.
func (c *Client) Warm(points []model.Coordinate) {
	dist, dur, err := c.Table(points)
	if err != nil {
		c.log.Warnf("osrm table precompute failed: %v", err)
		return
	}
	for i, a := range points {
		for j, b := range points {
			if i == j || i >= len(dist) || j >= len(dist[i]) {
				continue
			}
			c.store(a, b, legResult{km: dist[i][j], mins: dur[i][j]})
		}
	}
	c.log.Infof("osrm cache warmed with %d locations", len(points))
}
