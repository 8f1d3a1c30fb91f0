package httpserver

import (
	"fmt"
	"net/http"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
	apperrors "github.com/RockGamerAK/Economy-Fun-Bot/internal/errors"
	"github.com/labstack/echo/v4"
)

// registerWebhookRoutes mounts the ingest endpoints the chat bridge posts
// reaction and deletion notifications to.
func (s *Server) registerWebhookRoutes() {
	hooks := s.echo.Group("/webhooks",
		newRateLimiter(s.config.IngestRateLimit, s.config.IngestRateBurst),
		requireAPIKey(s.config.IngestAPIKey),
	)
	hooks.POST("/reactions", s.handleReactionAdded)
	hooks.POST("/messages/deleted", s.handleMessageDeleted)
}

func (s *Server) handleReactionAdded(c echo.Context) error {
	var r domain.ReactionAdded
	if err := c.Bind(&r); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := r.Validate(); err != nil {
		return apperrors.ValidationError(err.Error())
	}

	if err := s.publisher.PublishReaction(c.Request().Context(), r); err != nil {
		return apperrors.ExternalError("failed to forward reaction", err).WithContext("anchor_id", r.AnchorID)
	}
	return accepted(c)
}

func (s *Server) handleMessageDeleted(c echo.Context) error {
	var m domain.MessageDeleted
	if err := c.Bind(&m); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := m.Validate(); err != nil {
		return apperrors.ValidationError(err.Error())
	}

	if err := s.publisher.PublishMessageDeleted(c.Request().Context(), m); err != nil {
		return apperrors.ExternalError("failed to forward message deletion", err).WithContext("message_id", m.MessageID)
	}
	return accepted(c)
}

func accepted(c echo.Context) error {
	if err := c.JSON(http.StatusAccepted, map[string]string{"status": "accepted"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
