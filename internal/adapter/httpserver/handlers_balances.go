package httpserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
	apperrors "github.com/RockGamerAK/Economy-Fun-Bot/internal/errors"
	"github.com/labstack/echo/v4"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type balanceResponse struct {
	UserID  string               `json:"user_id"`
	Balance int64                `json:"balance"`
	History []domain.Transaction `json:"history"`
}

func (s *Server) handleGetBalance(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Param("user")

	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxHistoryLimit {
			return apperrors.ValidationError(fmt.Sprintf("limit must be between 0 and %d", maxHistoryLimit)).WithContext("limit", raw)
		}
		limit = n
	}

	balance, err := s.balances.Balance(ctx, userID)
	if err != nil {
		return apperrors.InternalError("failed to load balance", err).WithContext("user_id", userID)
	}

	history := []domain.Transaction{}
	if limit > 0 {
		history, err = s.balances.History(ctx, userID, limit)
		if err != nil {
			return apperrors.InternalError("failed to load history", err).WithContext("user_id", userID)
		}
	}

	if err := c.JSON(http.StatusOK, balanceResponse{UserID: userID, Balance: balance, History: history}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
