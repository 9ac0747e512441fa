package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Vasheegaran/ExpenseTrack/internal/services"
)

// DashboardHandler serves spending summaries.
type DashboardHandler struct {
	aggregationService services.AggregationServicer
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(aggregationService services.AggregationServicer) *DashboardHandler {
	return &DashboardHandler{aggregationService: aggregationService}
}

// Dashboard returns the user's expenses with their totals.
// @Summary     Dashboard
// @Description All expenses of the authenticated user (newest first), the total spent and per-category totals
// @Tags        dashboard
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.Dashboard "Dashboard"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      / [get]
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	dashboard, err := h.aggregationService.Dashboard(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// ChartData returns the spending-by-category chart series.
// @Summary     Chart data
// @Description Category labels, totals and colors, largest total first
// @Tags        dashboard
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.ChartSeries "Chart series"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /chart-data [get]
func (h *DashboardHandler) ChartData(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	series, err := h.aggregationService.ChartSeries(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, series)
}
