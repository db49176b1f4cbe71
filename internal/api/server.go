// Package api provides the HTTP API for observing and building the city.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/cityscape/internal/city"
	"github.com/talgya/cityscape/internal/engine"
	"github.com/talgya/cityscape/internal/metrics"
	"github.com/talgya/cityscape/internal/persistence"
	"github.com/talgya/cityscape/internal/store"
)

// Server serves the city over HTTP.
type Server struct {
	City     *store.City
	Eng      *engine.Engine
	Saver    *persistence.Saver // Optional; nil disables POST /save
	Metrics  *metrics.Collector // Optional; nil leaves /metrics unmounted
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// Placement requests per client per minute.
	BuildRate int
}

// Handler builds the request router.
func (s *Server) Handler() http.Handler {
	rate := s.BuildRate
	if rate <= 0 {
		rate = 600
	}
	buildLimiter := NewRateLimiter(rate, time.Minute)
	// Only mutations are rate limited.
	build := func(h http.HandlerFunc) http.HandlerFunc {
		limited := RateLimitMiddleware(buildLimiter, h)
		return s.adminOnly(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				limited(w, r)
				return
			}
			h(w, r)
		})
	}

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/buildings", s.handleBuildings)
	mux.HandleFunc("/api/v1/economy", s.handleEconomy)
	mux.HandleFunc("/api/v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/v1/grid", s.handleGrid)
	mux.HandleFunc("/api/v1/coverage", s.handleCoverage)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/stats/history", s.handleStatsHistory)
	mux.HandleFunc("/api/v1/catalog", s.handleCatalog)

	// Detail and per-building actions (GET public, POST admin).
	mux.HandleFunc("/api/v1/building/", build(s.handleBuildingRoutes))

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/zone", build(s.handleZone))
	mux.HandleFunc("/api/v1/build", build(s.handleBuild))
	mux.HandleFunc("/api/v1/infrastructure", build(s.handleInfrastructure))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/save", s.adminOnly(s.handleSave))

	if s.Metrics != nil {
		mux.Handle("/metrics", s.Metrics.Handler())
	}
	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine. The returned server can
// be shut down by the caller.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "metrics", s.Metrics != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no CITYSIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) speed() float64 {
	if s.Eng == nil {
		return 0
	}
	return s.Eng.Speed()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	tick := s.City.Tick()
	snap := s.City.LastSnapshot()
	status := map[string]any{
		"tick":            tick,
		"sim_time":        engine.SimTime(tick),
		"speed":           s.speed(),
		"funds":           s.City.Funds(),
		"buildings":       len(s.City.Buildings()),
		"population":      snap.Economics.Population,
		"jobs":            snap.Economics.Jobs,
		"happiness":       snap.Happiness,
		"pollution":       snap.Pollution,
		"employment_rate": snap.Economics.EmploymentRate,
		"net_income":      snap.Economics.NetIncome,
	}
	writeJSON(w, status)
}

// buildingView is a building record joined with its last tick result.
type buildingView struct {
	city.Record
	Status     city.Status  `json:"status"`
	Efficiency float64      `json:"efficiency"`
	HasRoad    bool         `json:"hasRoad"`
	HasPower   bool         `json:"hasPower"`
	HasWater   bool         `json:"hasWater"`
	Output     *city.Output `json:"output,omitempty"`
}

func (s *Server) views() []buildingView {
	updates := make(map[string]engine.Update)
	for _, u := range s.City.LastSnapshot().Buildings {
		updates[u.ID] = u
	}
	records := s.City.Buildings()
	out := make([]buildingView, len(records))
	for i, rec := range records {
		out[i] = newBuildingView(rec, updates)
	}
	return out
}

func newBuildingView(rec city.Record, updates map[string]engine.Update) buildingView {
	v := buildingView{Record: rec, Status: city.StatusDark}
	if u, ok := updates[rec.ID]; ok {
		output := u.Output
		v.Status = u.Status
		v.Efficiency = u.Efficiency
		v.HasRoad = u.Links.HasRoad
		v.HasPower = u.Links.HasPower
		v.HasWater = u.Links.HasWater
		v.Output = &output
	}
	return v
}

func (s *Server) handleBuildings(w http.ResponseWriter, r *http.Request) {
	views := s.views()

	// Optional filters: ?type=residential&status=dark
	typ := r.URL.Query().Get("type")
	status := r.URL.Query().Get("status")
	if typ != "" || status != "" {
		filtered := views[:0]
		for _, v := range views {
			if typ != "" && v.Type != typ && v.BuildingType != typ {
				continue
			}
			if status != "" && v.Status.String() != status {
				continue
			}
			filtered = append(filtered, v)
		}
		views = filtered
	}
	writeJSON(w, views)
}

// handleBuildingRoutes serves GET /building/:id, POST /building/:id/upgrade
// and POST /building/:id/remove.
func (s *Server) handleBuildingRoutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// api, v1, building, :id, [action]
	if len(parts) < 4 || parts[3] == "" {
		http.Error(w, "missing building id", http.StatusBadRequest)
		return
	}
	id := parts[3]

	if len(parts) == 4 {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rec, err := s.City.Building(id)
		if err != nil {
			writeError(w, err)
			return
		}
		updates := make(map[string]engine.Update)
		for _, u := range s.City.LastSnapshot().Buildings {
			if u.ID == id {
				updates[id] = u
			}
		}
		writeJSON(w, newBuildingView(rec, updates))
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	switch parts[4] {
	case "upgrade":
		upgraded, err := s.City.Upgrade(id)
		if err != nil {
			writeError(w, err)
			return
		}
		rec, _ := s.City.Building(id)
		slog.Info("building upgraded", "id", id, "upgraded", upgraded, "size", rec.Size)
		writeJSON(w, map[string]any{"upgraded": upgraded, "building": rec, "funds": s.City.Funds()})
	case "remove":
		if err := s.City.Remove(id); err != nil {
			writeError(w, err)
			return
		}
		slog.Info("building removed", "id", id)
		writeJSON(w, map[string]any{"removed": id})
	default:
		http.Error(w, "unknown action", http.StatusNotFound)
	}
}

func (s *Server) handleEconomy(w http.ResponseWriter, r *http.Request) {
	snap := s.City.LastSnapshot()
	writeJSON(w, map[string]any{
		"tick":      s.City.Tick(),
		"funds":     s.City.Funds(),
		"economics": snap.Economics,
		"transport": snap.Transport,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.City.LastSnapshot())
}

type gridCell struct {
	X int `json:"x"`
	Y int `json:"y"`
	city.Cell
}

// handleGrid returns the grid dimensions and every occupied cell.
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	g := s.City.Grid()
	cells := []gridCell{}
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			c, _ := g.At(x, y)
			if !c.Empty() {
				cells = append(cells, gridCell{X: x, Y: y, Cell: c})
			}
		}
	}
	writeJSON(w, map[string]any{
		"width":  g.Width,
		"height": g.Height,
		"cells":  cells,
	})
}

// handleCoverage returns one served mask as rows of '#' (served) and '.'.
// GET /api/v1/coverage?kind=power
func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("kind")
	if name == "" {
		name = city.InfraPower.String()
	}
	kind, err := city.ParseInfraKind(name)
	if err != nil {
		writeError(w, err)
		return
	}

	cov := s.City.Coverage()
	rows := make([]string, cov.Height)
	served := 0
	var b strings.Builder
	for y := 0; y < cov.Height; y++ {
		b.Reset()
		for x := 0; x < cov.Width; x++ {
			if cov.Served(kind, x, y) {
				b.WriteByte('#')
				served++
			} else {
				b.WriteByte('.')
			}
		}
		rows[y] = b.String()
	}
	writeJSON(w, map[string]any{
		"kind":   kind,
		"served": served,
		"rows":   rows,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	var events []store.Event
	if a := r.URL.Query().Get("after"); a != "" {
		after, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			http.Error(w, "invalid after", http.StatusBadRequest)
			return
		}
		events = s.City.EventsAfter(after)
		if len(events) > limit {
			events = events[:limit]
		}
	} else {
		events = s.City.Events(limit)
	}

	// Optional category filter.
	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []store.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	if events == nil {
		events = []store.Event{}
	}
	writeJSON(w, events)
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	history := s.City.History()

	fromTick := uint64(0)
	if f := r.URL.Query().Get("from"); f != "" {
		if v, err := strconv.ParseUint(f, 10, 64); err == nil {
			fromTick = v
		}
	}
	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= engine.TicksPerYear {
			limit = v
		}
	}

	points := []store.HistoryPoint{}
	for _, p := range history {
		if p.Tick >= fromTick {
			points = append(points, p)
		}
	}
	if len(points) > limit {
		points = points[len(points)-limit:]
	}
	writeJSON(w, points)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	entries := make([]store.CatalogEntry, 0, len(store.Catalog))
	for _, e := range store.Catalog {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	infra := make(map[string]int, len(store.InfrastructurePrice))
	for kind, price := range store.InfrastructurePrice {
		infra[kind.String()] = price
	}
	writeJSON(w, map[string]any{
		"buildings":      entries,
		"infrastructure": infra,
	})
}

// handleZone places a zoned building. Body: {"x":1,"y":2,"zone":"residential","block":false}
func (s *Server) handleZone(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		X     int    `json:"x"`
		Y     int    `json:"y"`
		Zone  string `json:"zone"`
		Block bool   `json:"block"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	zone, err := city.ParseZone(req.Zone)
	if err != nil {
		writeError(w, err)
		return
	}

	var id string
	if req.Block {
		id, err = s.City.AddZoneBlock(req.X, req.Y, zone)
	} else {
		id, err = s.City.AddZone(req.X, req.Y, zone)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	s.writePlaced(w, id)
}

// handleBuild places a catalog building. Body: {"x":1,"y":2,"name":"hospital"}
func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		X    int    `json:"x"`
		Y    int    `json:"y"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	id, err := s.City.AddBuilding(req.X, req.Y, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	s.writePlaced(w, id)
}

func (s *Server) writePlaced(w http.ResponseWriter, id string) {
	rec, err := s.City.Building(id)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("building placed", "id", id, "type", rec.Type, "x", rec.X, "y", rec.Y)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(map[string]any{"building": rec, "funds": s.City.Funds()})
}

// handleInfrastructure lays or clears one tile.
// Body: {"x":1,"y":2,"kind":"road"} or {"x":1,"y":2,"remove":true}
func (s *Server) handleInfrastructure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		X      int    `json:"x"`
		Y      int    `json:"y"`
		Kind   string `json:"kind"`
		Remove bool   `json:"remove"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if req.Remove {
		if err := s.City.RemoveInfrastructure(req.X, req.Y); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]any{"removed": true, "x": req.X, "y": req.Y})
		return
	}

	kind, err := city.ParseInfraKind(req.Kind)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.City.AddInfrastructure(req.X, req.Y, kind); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"kind": kind, "x": req.X, "y": req.Y, "funds": s.City.Funds()})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "simulation not running", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Saver == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	tick, err := s.Saver.Save()
	if err != nil {
		slog.Error("save failed", "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"tick":    tick,
		"message": "city saved",
	})
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, store.ErrInsufficientFunds):
		code = http.StatusPaymentRequired
	case errors.Is(err, city.ErrInvalidGridState):
		code = http.StatusConflict
	case errors.Is(err, city.ErrInvalidConfiguration):
		code = http.StatusBadRequest
	}
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
