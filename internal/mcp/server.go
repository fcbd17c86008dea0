// Package mcp implements the Model Context Protocol server for skylark.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/coordinator"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
)

// Server wraps an MCPServer with the fleet coordinator.
type Server struct {
	mcp      *mcpserver.MCPServer
	coord    *coordinator.Coordinator
	logger   *slog.Logger
	handlers map[string]mcpserver.ToolHandlerFunc
}

// NewServer creates a new MCP server. If coord is nil every tool call
// returns an error result instead of panicking.
func NewServer(coord *coordinator.Coordinator, logger *slog.Logger) *Server {
	s := &Server{
		coord:  coord,
		logger: logger,
	}

	mcpSrv := mcpserver.NewMCPServer(
		"skylark",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	tools := []struct {
		tool    mcpgo.Tool
		handler mcpserver.ToolHandlerFunc
	}{
		{buildQueryPilotsTool(), s.handleQueryPilots},
		{buildGetPilotTool(), s.handleGetPilot},
		{buildUpdatePilotStatusTool(), s.handleUpdatePilotStatus},
		{buildQueryDronesTool(), s.handleQueryDrones},
		{buildGetDroneTool(), s.handleGetDrone},
		{buildUpdateDroneStatusTool(), s.handleUpdateDroneStatus},
		{buildAvailableMissionsTool(), s.handleAvailableMissions},
		{buildGetMissionTool(), s.handleGetMission},
		{buildAssignPilotTool(), s.handleAssignPilot},
		{buildAssignDroneTool(), s.handleAssignDrone},
		{buildCheckConflictsTool(), s.handleCheckConflicts},
		{buildDetectAllConflictsTool(), s.handleDetectAllConflicts},
		{buildFindReplacementTool(), s.handleFindReplacement},
		{buildReassignMissionTool(), s.handleReassignMission},
	}
	s.handlers = make(map[string]mcpserver.ToolHandlerFunc, len(tools))
	for _, t := range tools {
		h := s.guard(t.handler)
		s.handlers[t.tool.Name] = h
		mcpSrv.AddTool(t.tool, h)
	}

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// Handle dispatches a tool call by name. It is exposed for direct testing
// without the mcp-go transport layer.
func (s *Server) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	h, ok := s.handlers[req.Params.Name]
	if !ok {
		return mcpgo.NewToolResultErrorf("unknown tool %q", req.Params.Name), nil
	}
	return h(ctx, req)
}

// guard short-circuits tool calls when no coordinator is wired.
func (s *Server) guard(h mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		if s.coord == nil {
			return mcpgo.NewToolResultError("coordinator is unavailable"), nil
		}
		return h(ctx, req)
	}
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// toolError turns a coordinator failure into an error result. Blocked
// assignments keep their conflict list in the payload.
func (s *Server) toolError(op string, err error) (*mcpgo.CallToolResult, error) {
	var blocked *coordinator.ValidationBlockedError
	if errors.As(err, &blocked) {
		res, jerr := toolResultJSON(assignmentPayload{
			Success:   false,
			Message:   err.Error(),
			Conflicts: blocked.Blocking,
		})
		if jerr != nil {
			return nil, jerr
		}
		res.IsError = true
		return res, nil
	}
	s.logger.Debug("mcp: tool failed", "op", op, "error", err)
	return mcpgo.NewToolResultErrorf("%s: %s", op, err.Error()), nil
}

func splitArg(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// --- tool definitions ---

func buildQueryPilotsTool() mcpgo.Tool {
	return mcpgo.NewTool("query_pilots",
		mcpgo.WithDescription("Query pilots by skills, certifications, location and status. All filters are optional."),
		mcpgo.WithString("skills", mcpgo.Description("Comma-separated required skills (e.g. \"Mapping,Surveying\")")),
		mcpgo.WithString("certifications", mcpgo.Description("Comma-separated required certifications")),
		mcpgo.WithString("location", mcpgo.Description("Location to filter by")),
		mcpgo.WithString("status", mcpgo.Description("Available, Assigned, On Leave or Unavailable")),
	)
}

func buildGetPilotTool() mcpgo.Tool {
	return mcpgo.NewTool("get_pilot_details",
		mcpgo.WithDescription("Get full details for one pilot."),
		mcpgo.WithString("pilot_id", mcpgo.Required(), mcpgo.Description("ID of the pilot (e.g. \"P001\")")),
	)
}

func buildUpdatePilotStatusTool() mcpgo.Tool {
	return mcpgo.NewTool("update_pilot_status",
		mcpgo.WithDescription("Update a pilot's status."),
		mcpgo.WithString("pilot_id", mcpgo.Required(), mcpgo.Description("ID of the pilot")),
		mcpgo.WithString("status", mcpgo.Required(), mcpgo.Description("Available, Assigned, On Leave or Unavailable")),
		mcpgo.WithString("notes", mcpgo.Description("Optional notes about the change")),
	)
}

func buildQueryDronesTool() mcpgo.Tool {
	return mcpgo.NewTool("query_drones",
		mcpgo.WithDescription("Query drones by capabilities, location and status. All filters are optional."),
		mcpgo.WithString("capabilities", mcpgo.Description("Comma-separated required capabilities (e.g. \"RGB,Thermal\")")),
		mcpgo.WithString("location", mcpgo.Description("Location to filter by")),
		mcpgo.WithString("status", mcpgo.Description("Available, Deployed or Maintenance")),
	)
}

func buildGetDroneTool() mcpgo.Tool {
	return mcpgo.NewTool("get_drone_details",
		mcpgo.WithDescription("Get full details for one drone."),
		mcpgo.WithString("drone_id", mcpgo.Required(), mcpgo.Description("ID of the drone (e.g. \"D001\")")),
	)
}

func buildUpdateDroneStatusTool() mcpgo.Tool {
	return mcpgo.NewTool("update_drone_status",
		mcpgo.WithDescription("Update a drone's status and optionally move it."),
		mcpgo.WithString("drone_id", mcpgo.Required(), mcpgo.Description("ID of the drone")),
		mcpgo.WithString("status", mcpgo.Required(), mcpgo.Description("Available, Deployed or Maintenance")),
		mcpgo.WithString("location", mcpgo.Description("Optional new location")),
	)
}

func buildAvailableMissionsTool() mcpgo.Tool {
	return mcpgo.NewTool("get_available_missions",
		mcpgo.WithDescription("List missions that are Pending or Active."),
	)
}

func buildGetMissionTool() mcpgo.Tool {
	return mcpgo.NewTool("get_mission_details",
		mcpgo.WithDescription("Get full details for one mission."),
		mcpgo.WithString("mission_id", mcpgo.Required(), mcpgo.Description("ID of the mission (e.g. \"M001\")")),
	)
}

func buildAssignPilotTool() mcpgo.Tool {
	return mcpgo.NewTool("assign_pilot_to_mission",
		mcpgo.WithDescription("Assign a pilot to a mission. Refused when any critical conflict exists; other conflicts are returned as warnings."),
		mcpgo.WithString("pilot_id", mcpgo.Required(), mcpgo.Description("ID of the pilot")),
		mcpgo.WithString("mission_id", mcpgo.Required(), mcpgo.Description("ID of the mission")),
	)
}

func buildAssignDroneTool() mcpgo.Tool {
	return mcpgo.NewTool("assign_drone_to_mission",
		mcpgo.WithDescription("Assign a drone to a mission. Refused when any critical conflict exists; other conflicts are returned as warnings."),
		mcpgo.WithString("drone_id", mcpgo.Required(), mcpgo.Description("ID of the drone")),
		mcpgo.WithString("mission_id", mcpgo.Required(), mcpgo.Description("ID of the mission")),
	)
}

func buildCheckConflictsTool() mcpgo.Tool {
	return mcpgo.NewTool("check_conflicts",
		mcpgo.WithDescription("Check a mission for conflicts. With a pilot and/or drone, checks that proposed assignment; otherwise checks the mission's current assignment."),
		mcpgo.WithString("mission_id", mcpgo.Required(), mcpgo.Description("ID of the mission")),
		mcpgo.WithString("pilot_id", mcpgo.Description("Optional pilot ID")),
		mcpgo.WithString("drone_id", mcpgo.Description("Optional drone ID")),
	)
}

func buildDetectAllConflictsTool() mcpgo.Tool {
	return mcpgo.NewTool("detect_all_conflicts",
		mcpgo.WithDescription("Detect conflicts across every assigned mission, grouped by severity."),
	)
}

func buildFindReplacementTool() mcpgo.Tool {
	return mcpgo.NewTool("find_replacement_pilot",
		mcpgo.WithDescription("Rank up to three replacement pilots for a mission (lower score is better)."),
		mcpgo.WithString("mission_id", mcpgo.Required(), mcpgo.Description("ID of the mission")),
		mcpgo.WithString("urgency",
			mcpgo.Description("Urgency level (default: normal). Critical admits benched and conflicted pilots."),
			mcpgo.Enum("low", "normal", "high", "critical"),
		),
	)
}

func buildReassignMissionTool() mcpgo.Tool {
	return mcpgo.NewTool("reassign_mission",
		mcpgo.WithDescription("Reassign a mission to a new pilot and/or drone. Conflicts are reported but never block."),
		mcpgo.WithString("mission_id", mcpgo.Required(), mcpgo.Description("ID of the mission")),
		mcpgo.WithString("new_pilot_id", mcpgo.Description("New pilot ID")),
		mcpgo.WithString("new_drone_id", mcpgo.Description("New drone ID")),
		mcpgo.WithString("reason", mcpgo.Description("Reason for the reassignment")),
	)
}

// --- tool handlers ---

func (s *Server) handleQueryPilots(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	f := coordinator.PilotFilter{
		Skills:         splitArg(req.GetString("skills", "")),
		Certifications: splitArg(req.GetString("certifications", "")),
		Location:       strings.TrimSpace(req.GetString("location", "")),
	}
	if raw := req.GetString("status", ""); raw != "" {
		st, ok := models.ParsePilotStatus(raw)
		if !ok {
			return mcpgo.NewToolResultErrorf("invalid status %q: must be one of Available, Assigned, On Leave, Unavailable", raw), nil
		}
		f.Status = st
	}
	pilots, err := s.coord.QueryPilots(ctx, f)
	if err != nil {
		return s.toolError("query pilots", err)
	}
	return toolResultJSON(map[string]any{"count": len(pilots), "pilots": pilots})
}

func (s *Server) handleGetPilot(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("pilot_id", ""))
	if id == "" {
		return mcpgo.NewToolResultError("pilot_id is required"), nil
	}
	p, err := s.coord.Pilot(ctx, id)
	if err != nil {
		return s.toolError("get pilot", err)
	}
	return toolResultJSON(p)
}

func (s *Server) handleUpdatePilotStatus(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("pilot_id", ""))
	if id == "" {
		return mcpgo.NewToolResultError("pilot_id is required"), nil
	}
	raw := strings.TrimSpace(req.GetString("status", ""))
	if raw == "" {
		return mcpgo.NewToolResultError("status is required"), nil
	}
	st, ok := models.ParsePilotStatus(raw)
	if !ok {
		return mcpgo.NewToolResultErrorf("invalid status %q: must be one of Available, Assigned, On Leave, Unavailable", raw), nil
	}
	p, err := s.coord.UpdatePilotStatus(ctx, id, st)
	if err != nil {
		return s.toolError("update pilot status", err)
	}
	s.logger.Info("mcp: pilot status updated", "pilot_id", p.ID, "status", p.Status)
	return toolResultJSON(map[string]any{
		"success": true,
		"message": fmt.Sprintf("Pilot %s status updated to %s", p.ID, p.Status),
		"notes":   req.GetString("notes", ""),
	})
}

func (s *Server) handleQueryDrones(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	f := coordinator.DroneFilter{
		Capabilities: splitArg(req.GetString("capabilities", "")),
		Location:     strings.TrimSpace(req.GetString("location", "")),
	}
	if raw := req.GetString("status", ""); raw != "" {
		st, ok := models.ParseDroneStatus(raw)
		if !ok {
			return mcpgo.NewToolResultErrorf("invalid status %q: must be one of Available, Deployed, Maintenance", raw), nil
		}
		f.Status = st
	}
	drones, err := s.coord.QueryDrones(ctx, f)
	if err != nil {
		return s.toolError("query drones", err)
	}
	return toolResultJSON(map[string]any{"count": len(drones), "drones": drones})
}

func (s *Server) handleGetDrone(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("drone_id", ""))
	if id == "" {
		return mcpgo.NewToolResultError("drone_id is required"), nil
	}
	d, err := s.coord.Drone(ctx, id)
	if err != nil {
		return s.toolError("get drone", err)
	}
	return toolResultJSON(d)
}

func (s *Server) handleUpdateDroneStatus(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("drone_id", ""))
	if id == "" {
		return mcpgo.NewToolResultError("drone_id is required"), nil
	}
	raw := strings.TrimSpace(req.GetString("status", ""))
	if raw == "" {
		return mcpgo.NewToolResultError("status is required"), nil
	}
	st, ok := models.ParseDroneStatus(raw)
	if !ok {
		return mcpgo.NewToolResultErrorf("invalid status %q: must be one of Available, Deployed, Maintenance", raw), nil
	}
	location := req.GetString("location", "")
	d, err := s.coord.UpdateDroneStatus(ctx, id, st, location)
	if err != nil {
		return s.toolError("update drone status", err)
	}
	msg := fmt.Sprintf("Drone %s status updated to %s", d.ID, d.Status)
	if strings.TrimSpace(location) != "" {
		msg += " at location " + d.Location
	}
	s.logger.Info("mcp: drone status updated", "drone_id", d.ID, "status", d.Status, "location", d.Location)
	return toolResultJSON(map[string]any{"success": true, "message": msg})
}

func (s *Server) handleAvailableMissions(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	missions, err := s.coord.Missions(ctx, models.MissionPending, models.MissionActive)
	if err != nil {
		return s.toolError("list missions", err)
	}
	return toolResultJSON(map[string]any{"count": len(missions), "missions": missions})
}

func (s *Server) handleGetMission(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("mission_id", ""))
	if id == "" {
		return mcpgo.NewToolResultError("mission_id is required"), nil
	}
	m, err := s.coord.Mission(ctx, id)
	if err != nil {
		return s.toolError("get mission", err)
	}
	return toolResultJSON(m)
}

// assignmentPayload is the result shape of the assignment tools.
type assignmentPayload struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Mission   *models.Mission   `json:"mission,omitempty"`
	Conflicts []models.Conflict `json:"conflicts,omitempty"`
	Warnings  []models.Conflict `json:"warnings,omitempty"`
	EventIDs  []string          `json:"event_ids,omitempty"`
}

func (s *Server) handleAssignPilot(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	pilotID := strings.TrimSpace(req.GetString("pilot_id", ""))
	if pilotID == "" {
		return mcpgo.NewToolResultError("pilot_id is required"), nil
	}
	missionID := strings.TrimSpace(req.GetString("mission_id", ""))
	if missionID == "" {
		return mcpgo.NewToolResultError("mission_id is required"), nil
	}
	res, err := s.coord.AssignPilot(ctx, missionID, pilotID)
	if err != nil {
		return s.toolError("assign pilot", err)
	}
	return toolResultJSON(assignmentPayload{
		Success:  true,
		Message:  fmt.Sprintf("Pilot %s assigned to mission %s", pilotID, missionID),
		Mission:  &res.Mission,
		Warnings: res.Warnings,
		EventIDs: []string{res.Event.ID},
	})
}

func (s *Server) handleAssignDrone(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	droneID := strings.TrimSpace(req.GetString("drone_id", ""))
	if droneID == "" {
		return mcpgo.NewToolResultError("drone_id is required"), nil
	}
	missionID := strings.TrimSpace(req.GetString("mission_id", ""))
	if missionID == "" {
		return mcpgo.NewToolResultError("mission_id is required"), nil
	}
	res, err := s.coord.AssignDrone(ctx, missionID, droneID)
	if err != nil {
		return s.toolError("assign drone", err)
	}
	return toolResultJSON(assignmentPayload{
		Success:  true,
		Message:  fmt.Sprintf("Drone %s assigned to mission %s", droneID, missionID),
		Mission:  &res.Mission,
		Warnings: res.Warnings,
		EventIDs: []string{res.Event.ID},
	})
}

func (s *Server) handleCheckConflicts(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	missionID := strings.TrimSpace(req.GetString("mission_id", ""))
	if missionID == "" {
		return mcpgo.NewToolResultError("mission_id is required"), nil
	}
	conflicts, err := s.coord.CheckConflicts(ctx, req.GetString("pilot_id", ""), req.GetString("drone_id", ""), missionID)
	if err != nil {
		return s.toolError("check conflicts", err)
	}
	return toolResultJSON(map[string]any{"count": len(conflicts), "conflicts": conflicts})
}

func (s *Server) handleDetectAllConflicts(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	report, err := s.coord.DetectAllConflicts(ctx)
	if err != nil {
		return s.toolError("detect conflicts", err)
	}
	return toolResultJSON(report.ConflictSummary)
}

func (s *Server) handleFindReplacement(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	missionID := strings.TrimSpace(req.GetString("mission_id", ""))
	if missionID == "" {
		return mcpgo.NewToolResultError("mission_id is required"), nil
	}
	urgency, ok := models.ParseUrgency(req.GetString("urgency", ""))
	if !ok {
		return mcpgo.NewToolResultErrorf("invalid urgency %q: must be one of low, normal, high, critical", req.GetString("urgency", "")), nil
	}
	cands, err := s.coord.FindReplacementCandidates(ctx, missionID, urgency)
	if err != nil {
		return s.toolError("find replacement pilot", err)
	}
	return toolResultJSON(map[string]any{
		"mission_id":       missionID,
		"urgency":          urgency,
		"candidates_found": len(cands),
		"top_candidates":   cands,
	})
}

func (s *Server) handleReassignMission(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	missionID := strings.TrimSpace(req.GetString("mission_id", ""))
	if missionID == "" {
		return mcpgo.NewToolResultError("mission_id is required"), nil
	}
	pilotID := strings.TrimSpace(req.GetString("new_pilot_id", ""))
	droneID := strings.TrimSpace(req.GetString("new_drone_id", ""))
	if pilotID == "" && droneID == "" {
		return mcpgo.NewToolResultError("new_pilot_id or new_drone_id is required"), nil
	}
	reason := req.GetString("reason", "")

	out := assignmentPayload{Success: true, Warnings: []models.Conflict{}}
	var changed []string
	if pilotID != "" {
		res, err := s.coord.ReassignMission(ctx, missionID, pilotID, reason)
		if err != nil {
			return s.toolError("reassign mission", err)
		}
		out.Mission = &res.Mission
		out.Warnings = append(out.Warnings, res.Warnings...)
		out.EventIDs = append(out.EventIDs, res.Event.ID)
		changed = append(changed, "pilot "+pilotID)
	}
	if droneID != "" {
		res, err := s.coord.ReassignDrone(ctx, missionID, droneID, reason)
		if err != nil {
			return s.toolError("reassign drone", err)
		}
		out.Mission = &res.Mission
		out.Warnings = append(out.Warnings, res.Warnings...)
		out.EventIDs = append(out.EventIDs, res.Event.ID)
		changed = append(changed, "drone "+droneID)
	}
	out.Message = fmt.Sprintf("Mission %s reassigned to %s", missionID, strings.Join(changed, " and "))
	s.logger.Info("mcp: mission reassigned", "mission_id", missionID, "pilot_id", pilotID, "drone_id", droneID)
	return toolResultJSON(out)
}
