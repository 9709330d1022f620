package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/services"
)

// DashboardHandler serves the per-client dashboard aggregates.
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// GetDashboard returns the client's dashboard, served from cache when fresh.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	client, _, ok := clientFromContext(c)
	if !ok {
		return
	}

	data, err := h.dashboardService.GetDashboard(c.Request.Context(), client.ID)
	if err != nil {
		apierrors.InternalError(c, "Failed to build dashboard")
		return
	}

	c.JSON(http.StatusOK, data)
}
