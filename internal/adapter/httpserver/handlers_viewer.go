package httpserver

import (
	"strings"

	apperrors "github.com/RockGamerAK/Economy-Fun-Bot/internal/errors"
	"github.com/centrifugal/centrifuge"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerViewerRoutes() {
	if s.websocketHandler == nil {
		return
	}
	s.echo.GET("/ws/events/:scope", s.handleViewerWebsocket)
}

// handleViewerWebsocket upgrades to a Centrifuge connection bound to the
// announcement channel of one scope.
func (s *Server) handleViewerWebsocket(c echo.Context) error {
	scopeID := c.Param("scope")
	if scopeID == "" || strings.ContainsAny(scopeID, ":/ ") {
		return apperrors.ValidationError("invalid scope").WithContext("scope_id", scopeID)
	}

	// The scope travels in Info; the node's connect handler subscribes to it.
	cred := &centrifuge.Credentials{UserID: "", Info: []byte(scopeID)}
	r := c.Request()
	r = r.WithContext(centrifuge.SetCredentials(r.Context(), cred))

	s.websocketHandler.ServeHTTP(c.Response(), r)
	return nil
}
