package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
	apperrors "github.com/RockGamerAK/Economy-Fun-Bot/internal/errors"
	"github.com/labstack/echo/v4"
)

const maxEventDuration = 7 * 24 * time.Hour

func (s *Server) registerEventRoutes() {
	api := s.echo.Group("/api", requireAPIKey(s.config.IngestAPIKey))
	api.GET("/events", s.handleListEvents)
	api.GET("/events/:scope", s.handleGetEvent)
	api.POST("/events/:scope", s.handleStartEvent)
	api.DELETE("/events/:scope", s.handleStopEvent)
	api.GET("/events/:scope/viewers", s.handleEventViewers)
	api.GET("/balances/:user", s.handleGetBalance)
}

// startEventRequest is the body of POST /api/events/:scope. Duration takes a
// Go duration string; Hours is accepted for chat commands that count in hours.
type startEventRequest struct {
	Amount   int64   `json:"amount"`
	PotSize  int64   `json:"pot_size"`
	Duration string  `json:"duration"`
	Hours    float64 `json:"hours"`
}

func (r startEventRequest) options() (domain.EventOptions, error) {
	opts := domain.EventOptions{Amount: r.Amount, PotSize: r.PotSize}

	switch {
	case r.Duration != "" && r.Hours != 0:
		return opts, apperrors.ValidationError("set either duration or hours, not both")
	case r.Duration != "":
		d, err := time.ParseDuration(r.Duration)
		if err != nil {
			return opts, apperrors.ValidationError("invalid duration").WithContext("duration", r.Duration)
		}
		opts.Duration = d
	case r.Hours != 0:
		opts.Duration = time.Duration(r.Hours * float64(time.Hour))
	}

	if opts.Duration > maxEventDuration {
		return opts, apperrors.ValidationError(fmt.Sprintf("duration must not exceed %s", maxEventDuration))
	}
	return opts, nil
}

func (s *Server) handleStartEvent(c echo.Context) error {
	scopeID := c.Param("scope")

	var req startEventRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	opts, err := req.options()
	if err != nil {
		return err
	}

	info, err := s.events.StartEvent(c.Request().Context(), scopeID, opts)
	if err != nil {
		return eventError(err, scopeID)
	}

	if err := c.JSON(http.StatusCreated, info); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleStopEvent(c echo.Context) error {
	scopeID := c.Param("scope")

	if err := s.events.StopEvent(scopeID); err != nil {
		return eventError(err, scopeID)
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetEvent(c echo.Context) error {
	scopeID := c.Param("scope")

	info, err := s.events.GetEvent(scopeID)
	if err != nil {
		return eventError(err, scopeID)
	}

	if err := c.JSON(http.StatusOK, info); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleEventViewers(c echo.Context) error {
	viewers := 0
	if s.viewerCount != nil {
		viewers = s.viewerCount(c.Param("scope"))
	}
	if err := c.JSON(http.StatusOK, map[string]int{"viewers": viewers}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleListEvents(c echo.Context) error {
	response := map[string]any{"events": s.events.ListEvents()}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// eventError maps event service errors onto structured API errors.
func eventError(err error, scopeID string) error {
	switch {
	case errors.Is(err, domain.ErrInvalidScope),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrPotTooSmall):
		return apperrors.ValidationError(err.Error()).WithContext("scope_id", scopeID)
	case errors.Is(err, domain.ErrEventActive):
		return apperrors.ConflictError("an event is already running in this scope").WithContext("scope_id", scopeID)
	case errors.Is(err, domain.ErrEventNotFound):
		return apperrors.NotFoundError("no event is running in this scope").WithContext("scope_id", scopeID)
	default:
		return apperrors.ExternalError("failed to start event", err).WithContext("scope_id", scopeID)
	}
}
