package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/knowledgehub/workflow/internal/api/metrics"
	"github.com/knowledgehub/workflow/internal/core/ports"
)

type LeaderboardHandler struct {
	service ports.LeaderboardService
	now     func() time.Time
}

func NewLeaderboardHandler(service ports.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{service: service, now: time.Now}
}

// Get handles GET /api/leaderboard.
//
// @Summary      Contributor leaderboard
// @Tags         leaderboard
// @Produce      json
// @Param        region     query     string  false  "Only items from this region"
// @Param        project    query     string  false  "Only items from this project"
// @Param        timeframe  query     string  false  "month or all (default all)"
// @Param        search     query     string  false  "Case-insensitive contributor filter"
// @Success      200        {object}  domain.Leaderboard
// @Failure      400        {object}  errorResponse
// @Router       /api/leaderboard [get]
func (h *LeaderboardHandler) Get(c echo.Context) error {
	var q leaderboardQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(&q); err != nil {
		return err
	}

	query := ports.LeaderboardQuery{Region: q.Region, Project: q.Project, Search: q.Search}
	if q.Timeframe == "month" {
		now := h.now().UTC()
		query.Since = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}

	timer := prometheus.NewTimer(metrics.LeaderboardDuration)
	board, err := h.service.Leaderboard(c.Request().Context(), query)
	timer.ObserveDuration()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, board)
}
