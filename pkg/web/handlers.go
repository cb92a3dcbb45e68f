package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-jetbot/pkg/autopilot"
	"github.com/teslashibe/go-jetbot/pkg/camera"
	"github.com/teslashibe/go-jetbot/pkg/hub"
	"github.com/teslashibe/go-jetbot/pkg/telemetry"
)

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Pilot   autopilot.Status    `json:"pilot"`
	Stats   *telemetry.Snapshot `json:"stats,omitempty"`
	Debug   bool                `json:"debug"`
	Clients map[string]int      `json:"clients"`
}

func (s *Server) status() StatusResponse {
	resp := StatusResponse{
		Pilot: s.pilot.Status(),
		Debug: s.debug.Load(),
		Clients: map[string]int{
			"telemetry": s.telemetryHub.ClientCount(),
			"mask":      s.maskHub.ClientCount(),
		},
	}
	if s.stats != nil {
		snap := s.stats.Snapshot()
		resp.Stats = &snap
	}
	return resp
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

func (s *Server) handleConfig(c *fiber.Ctx) error {
	if s.configFn == nil {
		return fiber.NewError(fiber.StatusNotFound, "configuration not available")
	}
	return c.JSON(s.configFn())
}

func (s *Server) handleEvents(c *fiber.Ctx) error {
	return c.JSON(s.Events())
}

func (s *Server) handleRuns(c *fiber.Ctx) error {
	if s.runs == nil {
		return fiber.NewError(fiber.StatusNotFound, "telemetry disabled")
	}
	runs, err := s.runs.Runs(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if runs == nil {
		runs = []telemetry.Run{}
	}
	return c.JSON(runs)
}

func (s *Server) handlePause(c *fiber.Ctx) error {
	return s.setPaused(c, true)
}

func (s *Server) handleResume(c *fiber.Ctx) error {
	return s.setPaused(c, false)
}

func (s *Server) setPaused(c *fiber.Ctx, paused bool) error {
	s.pilot.Pause(paused)
	if s.paused.Swap(paused) != paused {
		if paused {
			s.AddEvent("control", "drive paused")
		} else {
			s.AddEvent("control", "drive resumed")
		}
	}
	return c.JSON(fiber.Map{"paused": paused})
}

func (s *Server) handleTune(c *fiber.Ctx) error {
	t := s.pilot.Status().Tuning
	if err := c.BodyParser(&t); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := s.pilot.Tune(t); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	s.AddEvent("control", "tuning updated")
	return c.JSON(t)
}

// DebugRequest is the body of POST /api/debug. A missing body toggles.
type DebugRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) handleDebug(c *fiber.Ctx) error {
	var req DebugRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}
	on := !s.debug.Load()
	if req.Enabled != nil {
		on = *req.Enabled
	}
	s.SetDebug(on)
	return c.JSON(fiber.Map{"debug": on})
}

func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return fiber.NewError(fiber.StatusNotFound, "camera settings not available")
	}
	return c.JSON(s.camera.GetConfig())
}

// handleUpdateCamera accepts a partial update, e.g. {"preset":"low"} or
// {"quality":60}.
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return fiber.NewError(fiber.StatusNotFound, "camera settings not available")
	}
	params := make(map[string]interface{})
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := s.camera.UpdateConfig(params); err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, camera.ErrSizeLocked) {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	s.AddEvent("control", "camera settings updated")
	return c.JSON(s.camera.GetConfig())
}

func (s *Server) handleTelemetryWS(conn *websocket.Conn) {
	if !s.greet(conn) {
		return
	}
	hub.NewClient(s.telemetryHub, conn).Run()
}

type jsonWriter interface {
	WriteJSON(v interface{}) error
}

// greet sends the current status so the page can render before the next
// frame. A client that cannot take it is not attached to the hub.
func (s *Server) greet(w jsonWriter) bool {
	if err := w.WriteJSON(envelope{Kind: "status", Data: s.status()}); err != nil {
		s.logger.Debug("telemetry client gone before first write", "error", err)
		return false
	}
	return true
}

func (s *Server) handleMaskWS(conn *websocket.Conn) {
	hub.NewClient(s.maskHub, conn).Run()
}
