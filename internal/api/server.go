// Package api provides the HTTP API for running a raid campaign.
// GET endpoints are public (read-only observation). Raid orders are open to
// the player but rate limited; the clock and snapshots require a bearer token.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/talgya/raid-campaign/internal/agents"
	"github.com/talgya/raid-campaign/internal/balance"
	"github.com/talgya/raid-campaign/internal/engine"
	"github.com/talgya/raid-campaign/internal/persistence"
	"github.com/talgya/raid-campaign/internal/raid"
	"github.com/talgya/raid-campaign/internal/social"
)

// maxTickDays bounds a single admin tick request.
const maxTickDays = 365

// Server serves the campaign over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB // nil disables snapshots
	Port     int
	AdminKey string // Bearer token for admin endpoints. Empty = disabled.

	// Orders limits raid launches and recalls per client. Nil = unlimited.
	Orders *RateLimiter

	streams atomic.Int32
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	origins := allowedOrigins()
	r := mux.NewRouter()
	v1 := r.PathPrefix("/api/v1").Subrouter()

	// Public observation.
	v1.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	v1.HandleFunc("/settlements", s.handleSettlements).Methods(http.MethodGet)
	v1.HandleFunc("/settlements/{id:[0-9]+}", s.handleSettlement).Methods(http.MethodGet)
	v1.HandleFunc("/factions", s.handleFactions).Methods(http.MethodGet)
	v1.HandleFunc("/classes", s.handleClasses).Methods(http.MethodGet)
	v1.HandleFunc("/targets", s.handleTargets).Methods(http.MethodGet)
	v1.HandleFunc("/leaders", s.handleLeaders).Methods(http.MethodGet)
	v1.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	v1.HandleFunc("/raids", s.handleActiveRaids).Methods(http.MethodGet)
	v1.HandleFunc("/raids/history", s.handleRaidHistory).Methods(http.MethodGet)
	v1.HandleFunc("/raids/{id}", s.handleRaid).Methods(http.MethodGet)
	v1.HandleFunc("/stream", s.handleStream(newUpgrader(origins))).Methods(http.MethodGet)

	// Player orders.
	v1.Handle("/raids", s.limitOrders(s.handleCreateRaid)).Methods(http.MethodPost)
	v1.Handle("/raids/{id}/recall", s.limitOrders(s.handleRecall)).Methods(http.MethodPost)

	// Admin control plane.
	v1.HandleFunc("/tick", s.adminOnly(s.handleTick)).Methods(http.MethodPost)
	v1.HandleFunc("/leaders", s.adminOnly(s.handleRecruit)).Methods(http.MethodPost)
	v1.HandleFunc("/snapshot", s.adminOnly(s.handleSnapshot)).Methods(http.MethodPost)

	return corsMiddleware(origins, r)
}

// Start begins serving the HTTP API in a goroutine. The returned server can
// be shut down by the caller.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "order_limit", s.Orders != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// allowedOrigins lists the frontend origins browsers may call from.
// Set CORS_ORIGINS to a comma-separated list of extra origins.
// Localhost dev servers are always allowed.
func allowedOrigins() map[string]bool {
	allowed := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowed[origin] = true
			}
		}
	}
	return allowed
}

// corsMiddleware adds CORS headers for allowed frontend origins.
func corsMiddleware(allowedOrigins map[string]bool, next http.Handler) http.Handler {
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

func (s *Server) limitOrders(h http.HandlerFunc) http.Handler {
	if s.Orders == nil {
		return h
	}
	return s.Orders.Middleware(h)
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require the admin bearer token.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			writeError(w, http.StatusForbidden, "ADMIN_DISABLED", "admin endpoints disabled (no RAIDSIM_ADMIN_KEY set)")
			return
		}
		if !s.checkBearerToken(r) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.Sim.Stats()
	day := s.Sim.Raids.Day()
	status := map[string]any{
		"name":           "Raid Campaign",
		"day":            day,
		"sim_time":       engine.SimTime(day),
		"running":        s.Eng.Running(),
		"speed":          s.Eng.Speed,
		"home_id":        s.Sim.HomeID,
		"active_raids":   len(s.Sim.Raids.ActiveRaids()),
		"finished_raids": len(s.Sim.Raids.History()),
		"idle_warriors":  s.Sim.Pool.GetAvailableWarriors(),
		"fame":           s.Sim.Fame.Total(),
		"stock":          s.Sim.Store.Snapshot(),
		"worst_relation": stats.WorstRelation,
	}
	writeJSON(w, status)
}

type settlementView struct {
	*social.Settlement
	Wealth   float64 `json:"wealth"`
	Relation float64 `json:"relation"` // player faction's standing with the owner
	Home     bool    `json:"home"`
}

func (s *Server) settlementView(st *social.Settlement) settlementView {
	return settlementView{
		Settlement: st,
		Wealth:     st.Wealth(),
		Relation:   s.Sim.Diplomacy.Relation(social.PlayerFactionID, st.FactionID),
		Home:       st.ID == s.Sim.HomeID,
	}
}

func (s *Server) handleSettlements(w http.ResponseWriter, r *http.Request) {
	settlements := s.Sim.Registry.Settlements()
	result := make([]settlementView, 0, len(settlements))
	for _, st := range settlements {
		result = append(result, s.settlementView(st))
	}
	writeJSON(w, result)
}

func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid settlement id")
		return
	}
	st, ok := s.Sim.Registry.GetSettlement(id)
	if !ok {
		writeError(w, http.StatusNotFound, "SETTLEMENT_NOT_FOUND", "settlement not found")
		return
	}
	writeJSON(w, s.settlementView(st))
}

func (s *Server) handleFactions(w http.ResponseWriter, r *http.Request) {
	type factionView struct {
		*social.Faction
		Relation    float64 `json:"relation"`
		Settlements int     `json:"settlements"`
	}
	owned := make(map[social.FactionID]int)
	for _, st := range s.Sim.Registry.Settlements() {
		owned[st.FactionID]++
	}
	factions := s.Sim.Diplomacy.Factions()
	result := make([]factionView, 0, len(factions))
	for _, f := range factions {
		result = append(result, factionView{
			Faction:     f,
			Relation:    s.Sim.Diplomacy.Relation(social.PlayerFactionID, f.ID),
			Settlements: owned[f.ID],
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleClasses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Tables.Classes())
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	classID := r.URL.Query().Get("class")
	if classID == "" {
		classID = balance.ClassStandardRaid
	}
	targets, err := s.Sim.Raids.EvaluateTargets(s.Sim.HomeID, classID)
	if err != nil {
		writeRejection(w, err)
		return
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit < len(targets) {
		targets = targets[:limit]
	}
	writeJSON(w, targets)
}

func (s *Server) handleLeaders(w http.ResponseWriter, r *http.Request) {
	type leaderView struct {
		agents.Leader
		RaidID string `json:"raid_id,omitempty"`
	}
	busy := make(map[agents.LeaderID]string)
	for _, rd := range s.Sim.Raids.ActiveRaids() {
		if rd.Leader != nil {
			busy[rd.Leader.ID] = rd.ID
		}
	}
	leaders := s.Sim.Leaders()
	result := make([]leaderView, 0, len(leaders))
	for _, l := range leaders {
		result = append(result, leaderView{Leader: l, RaidID: busy[l.ID]})
	}
	writeJSON(w, result)
}

func (s *Server) handleRecruit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if req.Count < 1 || req.Count > 10 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "count must be between 1 and 10")
		return
	}
	recruits := s.Sim.RecruitLeaders(req.Count)
	slog.Info("admin intervention: leaders recruited", "count", len(recruits))
	writeJSONStatus(w, http.StatusCreated, recruits)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = min(l, 500)
	}
	writeJSON(w, s.Sim.Events(limit))
}

func (s *Server) handleActiveRaids(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Raids.ActiveRaids())
}

func (s *Server) handleRaidHistory(w http.ResponseWriter, r *http.Request) {
	history := s.Sim.Raids.History()
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit < len(history) {
		history = history[len(history)-limit:]
	}
	writeJSON(w, history)
}

func (s *Server) handleRaid(w http.ResponseWriter, r *http.Request) {
	rd, ok := s.Sim.Raids.Raid(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, string(raid.CodeRaidNotFound), "no raid with that id")
		return
	}
	writeJSON(w, rd)
}

// createRaidRequest is the body of POST /raids. Raids always leave from the
// player's home.
type createRaidRequest struct {
	Name     string              `json:"name"`
	ClassID  string              `json:"class_id"`
	TargetID social.SettlementID `json:"target_id"`
	Size     int                 `json:"size"`
	Units    raid.Units          `json:"units,omitempty"`
	Ships    int                 `json:"ships,omitempty"`
	LeaderID agents.LeaderID     `json:"leader_id,omitempty"`
}

func (s *Server) handleCreateRaid(w http.ResponseWriter, r *http.Request) {
	var req createRaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}

	params := raid.CreateParams{
		Name:     req.Name,
		ClassID:  req.ClassID,
		OriginID: s.Sim.HomeID,
		TargetID: req.TargetID,
		Size:     req.Size,
		Units:    req.Units,
		Ships:    req.Ships,
	}
	if req.LeaderID != 0 {
		leader, ok := s.Sim.Leader(req.LeaderID)
		if !ok {
			writeError(w, http.StatusNotFound, "LEADER_NOT_FOUND", fmt.Sprintf("no leader with id %d", req.LeaderID))
			return
		}
		params.Leader = leader
	}

	rd, err := s.Sim.Raids.CreateRaid(params)
	if err != nil {
		writeRejection(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, rd)
}

func (s *Server) handleRecall(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.Sim.Raids.Recall(id); err != nil {
		writeRejection(w, err)
		return
	}
	rd, _ := s.Sim.Raids.Raid(id)
	writeJSON(w, rd)
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Days int `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if req.Days < 1 || req.Days > maxTickDays {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("days must be between 1 and %d", maxTickDays))
		return
	}
	day := s.Eng.Advance(req.Days)
	slog.Info("admin intervention: clock advanced", "days", req.Days, "day", day)
	writeJSON(w, map[string]any{"day": day, "sim_time": engine.SimTime(day)})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "NO_DATABASE", "database not available")
		return
	}
	if err := s.DB.SaveWorldState(s.Sim); err != nil {
		slog.Error("snapshot failed", "error", err)
		writeError(w, http.StatusInternalServerError, "SNAPSHOT_FAILED", err.Error())
		return
	}
	day := s.Sim.Raids.Day()
	slog.Info("manual snapshot saved", "day", day)
	writeJSON(w, map[string]any{"saved": true, "day": day})
}

// statusFor maps a rejection to an HTTP status.
func statusFor(rej *raid.Rejection) int {
	switch rej.Code {
	case raid.CodeRaidNotFound:
		return http.StatusNotFound
	case raid.CodeRaidNotRecallable:
		return http.StatusConflict
	}
	if rej.Kind() == raid.KindDataIntegrity {
		return http.StatusConflict
	}
	return http.StatusUnprocessableEntity
}

func writeRejection(w http.ResponseWriter, err error) {
	var rej *raid.Rejection
	if errors.As(err, &rej) {
		writeError(w, statusFor(rej), string(rej.Code), rej.Message)
		return
	}
	slog.Error("unexpected raid error", "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message})
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
