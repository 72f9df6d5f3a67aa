package server

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/sicko7947/taskflow"
	"github.com/sicko7947/taskflow/agent"
)

// HistoryResponse is the body of GET /api/v1/history
type HistoryResponse struct {
	Entries agent.History `json:"entries"`
	Count   int           `json:"count"`
}

// WorkflowListResponse is the body of GET /api/v1/workflows
type WorkflowListResponse struct {
	Workflows []*taskflow.WorkflowSnapshot `json:"workflows"`
	Count     int                          `json:"count"`
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": s.service,
		"version": s.version,
	})
}

// handleSubmitRequest runs one request through the agent. A workflow that does
// not complete still returns its Response, with status 500.
func (s *Server) handleSubmitRequest(c fiber.Ctx) error {
	var req agent.Request
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	resp, err := s.agent.Handle(c.Context(), req)
	switch {
	case err == nil:
		return c.JSON(resp)
	case errors.Is(err, agent.ErrInvalidRequest):
		return badRequest(c, err.Error())
	case errors.Is(err, agent.ErrWorkflowFailed):
		s.logger.Warn().
			Err(err).
			Str("request_id", resp.RequestID).
			Str("workflow_id", resp.WorkflowID).
			Msg("Request workflow failed")
		return c.Status(fiber.StatusInternalServerError).JSON(resp)
	default:
		s.logger.Error().Err(err).Str("request_id", resp.RequestID).Msg("Failed to handle request")
		return internalError(c, err)
	}
}

func (s *Server) handleHistory(c fiber.Ctx) error {
	entries, err := s.agent.History(c.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read history")
		return internalError(c, err)
	}

	if entries == nil {
		entries = agent.History{}
	}
	return c.JSON(HistoryResponse{
		Entries: entries,
		Count:   len(entries),
	})
}

func (s *Server) handleListWorkflows(c fiber.Ctx) error {
	filter := taskflow.SnapshotFilter{
		Name: c.Query("name"),
	}

	if raw := c.Query("phase"); raw != "" {
		phase, err := taskflow.ParsePhase(raw)
		if err != nil {
			return badRequest(c, err.Error())
		}
		filter.Phase = &phase
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return badRequest(c, "limit must be a non-negative integer")
		}
		filter.Limit = limit
	}

	snaps, err := s.store.ListWorkflows(c.Context(), filter)
	if errors.Is(err, taskflow.ErrUnsupportedFilter) {
		return badRequest(c, err.Error())
	}
	if err != nil {
		s.logger.Error().Err(err).Str("name", filter.Name).Msg("Failed to list workflows")
		return internalError(c, err)
	}

	if snaps == nil {
		snaps = []*taskflow.WorkflowSnapshot{}
	}
	return c.JSON(WorkflowListResponse{
		Workflows: snaps,
		Count:     len(snaps),
	})
}

func (s *Server) handleGetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")

	snap, err := s.store.LoadWorkflow(c.Context(), id)
	if errors.Is(err, taskflow.ErrNotFound) {
		return notFound(c, "workflow not found")
	}
	if err != nil {
		s.logger.Error().Err(err).Str("workflow_id", id).Msg("Failed to load workflow")
		return internalError(c, err)
	}

	return c.JSON(snap)
}

func (s *Server) handleDeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")

	err := s.store.DeleteWorkflow(c.Context(), id)
	if errors.Is(err, taskflow.ErrNotFound) {
		return notFound(c, "workflow not found")
	}
	if err != nil {
		s.logger.Error().Err(err).Str("workflow_id", id).Msg("Failed to delete workflow")
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
