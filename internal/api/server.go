package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/coordinator"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/store"
)

const maxBodyBytes = 1 << 20 // 1 MB

// Server is an HTTP API server that exposes the fleet coordinator.
type Server struct {
	coord     *coordinator.Coordinator
	logger    *slog.Logger
	authToken string // empty = no auth required
}

// NewServer creates a new Server with the given dependencies.
func NewServer(coord *coordinator.Coordinator, logger *slog.Logger, authToken string) *Server {
	return &Server{
		coord:     coord,
		logger:    logger,
		authToken: authToken,
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check, no auth required.
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("GET /v1/pilots", s.auth(s.handleListPilots))
	mux.HandleFunc("GET /v1/pilots/{id}", s.auth(s.handleGetPilot))
	mux.HandleFunc("PUT /v1/pilots/{id}/status", s.auth(s.handlePilotStatus))

	mux.HandleFunc("GET /v1/drones", s.auth(s.handleListDrones))
	mux.HandleFunc("GET /v1/drones/{id}", s.auth(s.handleGetDrone))
	mux.HandleFunc("PUT /v1/drones/{id}/status", s.auth(s.handleDroneStatus))

	mux.HandleFunc("GET /v1/missions", s.auth(s.handleListMissions))
	mux.HandleFunc("GET /v1/missions/{id}", s.auth(s.handleGetMission))
	mux.HandleFunc("GET /v1/missions/{id}/conflicts", s.auth(s.handleMissionConflicts))
	mux.HandleFunc("GET /v1/missions/{id}/events", s.auth(s.handleMissionEvents))
	mux.HandleFunc("POST /v1/missions/{id}/validate", s.auth(s.handleValidate))
	mux.HandleFunc("POST /v1/missions/{id}/assign", s.auth(s.handleAssign))
	mux.HandleFunc("POST /v1/missions/{id}/candidates", s.auth(s.handleCandidates))
	mux.HandleFunc("POST /v1/missions/{id}/reassign", s.auth(s.handleReassign))

	mux.HandleFunc("GET /v1/conflicts", s.auth(s.handleAllConflicts))

	return mux
}

// --- middleware ---

// auth wraps a handler with Bearer token authentication when authToken is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	stats, err := s.coord.Refresh(r.Context())
	if err != nil {
		s.logger.Error("health check failed", "error", err)
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "records": stats})
}

func (s *Server) handleListPilots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Has("start") || q.Has("end") {
		start, end, ok := s.dateWindow(w, r)
		if !ok {
			return
		}
		pilots, err := s.coord.AvailablePilots(r.Context(), start, end)
		if err != nil {
			s.writeDomainError(w, err, "list available pilots")
			return
		}
		s.writeJSON(w, http.StatusOK, pilots)
		return
	}

	f := coordinator.PilotFilter{
		Skills:         splitParam(q.Get("skills")),
		Certifications: splitParam(q.Get("certifications")),
		Location:       q.Get("location"),
	}
	if raw := q.Get("status"); raw != "" {
		st, ok := models.ParsePilotStatus(raw)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "invalid pilot status")
			return
		}
		f.Status = st
	}
	pilots, err := s.coord.QueryPilots(r.Context(), f)
	if err != nil {
		s.writeDomainError(w, err, "query pilots")
		return
	}
	s.writeJSON(w, http.StatusOK, pilots)
}

func (s *Server) handleGetPilot(w http.ResponseWriter, r *http.Request) {
	p, err := s.coord.Pilot(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err, "get pilot")
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

// statusRequest is the body accepted by the status endpoints.
// Location only applies to drones.
type statusRequest struct {
	Status   string `json:"status"`
	Location string `json:"location"`
}

func (s *Server) handlePilotStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !s.decode(w, r, &req) {
		return
	}
	st, ok := models.ParsePilotStatus(req.Status)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid pilot status")
		return
	}
	p, err := s.coord.UpdatePilotStatus(r.Context(), r.PathValue("id"), st)
	if err != nil {
		s.writeDomainError(w, err, "update pilot status")
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListDrones(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Has("start") || q.Has("end") {
		start, end, ok := s.dateWindow(w, r)
		if !ok {
			return
		}
		drones, err := s.coord.AvailableDrones(r.Context(), start, end)
		if err != nil {
			s.writeDomainError(w, err, "list available drones")
			return
		}
		s.writeJSON(w, http.StatusOK, drones)
		return
	}

	f := coordinator.DroneFilter{
		Capabilities: splitParam(q.Get("capabilities")),
		Location:     q.Get("location"),
	}
	if raw := q.Get("status"); raw != "" {
		st, ok := models.ParseDroneStatus(raw)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "invalid drone status")
			return
		}
		f.Status = st
	}
	drones, err := s.coord.QueryDrones(r.Context(), f)
	if err != nil {
		s.writeDomainError(w, err, "query drones")
		return
	}
	s.writeJSON(w, http.StatusOK, drones)
}

func (s *Server) handleGetDrone(w http.ResponseWriter, r *http.Request) {
	d, err := s.coord.Drone(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err, "get drone")
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDroneStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !s.decode(w, r, &req) {
		return
	}
	st, ok := models.ParseDroneStatus(req.Status)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid drone status")
		return
	}
	d, err := s.coord.UpdateDroneStatus(r.Context(), r.PathValue("id"), st, req.Location)
	if err != nil {
		s.writeDomainError(w, err, "update drone status")
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleListMissions(w http.ResponseWriter, r *http.Request) {
	var statuses []models.MissionStatus
	for _, raw := range splitParam(r.URL.Query().Get("status")) {
		st, ok := models.ParseMissionStatus(raw)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "invalid mission status")
			return
		}
		statuses = append(statuses, st)
	}
	missions, err := s.coord.Missions(r.Context(), statuses...)
	if err != nil {
		s.writeDomainError(w, err, "list missions")
		return
	}
	s.writeJSON(w, http.StatusOK, missions)
}

func (s *Server) handleGetMission(w http.ResponseWriter, r *http.Request) {
	m, err := s.coord.Mission(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err, "get mission")
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

// conflictsResponse is returned by GET /v1/missions/{id}/conflicts.
type conflictsResponse struct {
	MissionID string            `json:"mission_id"`
	Conflicts []models.Conflict `json:"conflicts"`
}

func (s *Server) handleMissionConflicts(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	q := r.URL.Query()
	conflicts, err := s.coord.CheckConflicts(r.Context(), q.Get("pilot_id"), q.Get("drone_id"), id)
	if err != nil {
		s.writeDomainError(w, err, "check conflicts")
		return
	}
	s.writeJSON(w, http.StatusOK, conflictsResponse{MissionID: id, Conflicts: conflicts})
}

func (s *Server) handleMissionEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.coord.Events(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err, "list events")
		return
	}
	s.writeJSON(w, http.StatusOK, events)
}

// assignmentRequest is the body accepted by validate, assign and reassign.
type assignmentRequest struct {
	PilotID string `json:"pilot_id"`
	DroneID string `json:"drone_id"`
	Reason  string `json:"reason"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.coord.ValidateAssignment(r.Context(), req.PilotID, req.DroneID, r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err, "validate assignment")
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// assignResponse is returned by the assign and reassign endpoints.
type assignResponse struct {
	Success  bool                     `json:"success"`
	Mission  models.Mission           `json:"mission"`
	Warnings []models.Conflict        `json:"warnings"`
	Events   []models.AssignmentEvent `json:"events"`
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.PilotID == "" && req.DroneID == "" {
		s.writeError(w, http.StatusBadRequest, "pilot_id or drone_id is required")
		return
	}
	id := r.PathValue("id")
	s.writeAssignment(r.Context(), w, "assign", func(ctx context.Context) ([]*coordinator.AssignmentResult, error) {
		var out []*coordinator.AssignmentResult
		if req.PilotID != "" {
			res, err := s.coord.AssignPilot(ctx, id, req.PilotID)
			if err != nil {
				return nil, err
			}
			out = append(out, res)
		}
		if req.DroneID != "" {
			res, err := s.coord.AssignDrone(ctx, id, req.DroneID)
			if err != nil {
				return out, err
			}
			out = append(out, res)
		}
		return out, nil
	})
}

func (s *Server) handleReassign(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.PilotID == "" && req.DroneID == "" {
		s.writeError(w, http.StatusBadRequest, "pilot_id or drone_id is required")
		return
	}
	id := r.PathValue("id")
	s.writeAssignment(r.Context(), w, "reassign", func(ctx context.Context) ([]*coordinator.AssignmentResult, error) {
		var out []*coordinator.AssignmentResult
		if req.PilotID != "" {
			res, err := s.coord.ReassignMission(ctx, id, req.PilotID, req.Reason)
			if err != nil {
				return nil, err
			}
			out = append(out, res)
		}
		if req.DroneID != "" {
			res, err := s.coord.ReassignDrone(ctx, id, req.DroneID, req.Reason)
			if err != nil {
				return out, err
			}
			out = append(out, res)
		}
		return out, nil
	})
}

// writeAssignment runs fn and folds its results into one response. A
// pilot committed before a blocked drone stays committed; the error
// response reports the block.
func (s *Server) writeAssignment(ctx context.Context, w http.ResponseWriter, op string,
	fn func(context.Context) ([]*coordinator.AssignmentResult, error)) {
	results, err := fn(ctx)
	if err != nil {
		s.writeDomainError(w, err, op)
		return
	}
	resp := assignResponse{Success: true, Warnings: []models.Conflict{}, Events: []models.AssignmentEvent{}}
	for _, res := range results {
		resp.Mission = res.Mission
		resp.Warnings = append(resp.Warnings, res.Warnings...)
		resp.Events = append(resp.Events, res.Event)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// candidatesRequest is the body accepted by POST /v1/missions/{id}/candidates.
type candidatesRequest struct {
	Urgency string `json:"urgency"`
}

// candidatesResponse is returned by POST /v1/missions/{id}/candidates.
type candidatesResponse struct {
	MissionID  string                   `json:"mission_id"`
	Urgency    models.Urgency           `json:"urgency"`
	Candidates []models.RankedCandidate `json:"candidates"`
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	var req candidatesRequest
	if !s.decode(w, r, &req) {
		return
	}
	urgency, ok := models.ParseUrgency(req.Urgency)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid urgency")
		return
	}
	id := r.PathValue("id")
	cands, err := s.coord.FindReplacementCandidates(r.Context(), id, urgency)
	if err != nil {
		s.writeDomainError(w, err, "find candidates")
		return
	}
	s.writeJSON(w, http.StatusOK, candidatesResponse{MissionID: id, Urgency: urgency, Candidates: cands})
}

func (s *Server) handleAllConflicts(w http.ResponseWriter, r *http.Request) {
	report, err := s.coord.DetectAllConflicts(r.Context())
	if err != nil {
		s.writeDomainError(w, err, "detect conflicts")
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// --- helpers ---

// decode reads a JSON body into v. An empty body leaves v untouched.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// dateWindow parses the start and end query parameters.
func (s *Server) dateWindow(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()
	start, err := time.Parse(store.DateLayout, q.Get("start"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(store.DateLayout, q.Get("end"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// blockedResponse is the 409 body for an assignment with critical conflicts.
type blockedResponse struct {
	Error             string            `json:"error"`
	BlockingConflicts []models.Conflict `json:"blocking_conflicts"`
}

// writeDomainError maps coordinator errors onto status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error, op string) {
	var blocked *coordinator.ValidationBlockedError
	switch {
	case errors.As(err, &blocked):
		s.writeJSON(w, http.StatusConflict, blockedResponse{Error: err.Error(), BlockingConflicts: blocked.Blocking})
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, coordinator.ErrInvalidInput), errors.Is(err, models.ErrInvalidDateRange):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", "op", op, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
