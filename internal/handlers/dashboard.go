package handlers

import (
	"net/http"

	"project-management-api/internal/middleware"
	"project-management-api/internal/stats"

	"github.com/gin-gonic/gin"
)

// DashboardStats handles GET /api/v1/dashboard/stats
func (h *Handler) DashboardStats(c *gin.Context) {
	const op = "handlers.Handler.DashboardStats"

	out, err := h.stats.DashboardStats(c.Request.Context(), middleware.Subject(c))
	if err != nil {
		h.fail(c, h.logger(c, op), err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// RecentActivity handles GET /api/v1/dashboard/recent-activity
func (h *Handler) RecentActivity(c *gin.Context) {
	const op = "handlers.Handler.RecentActivity"

	limit, err := queryInt(c, "limit", stats.DefaultRecentLimit)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	out, err := h.stats.RecentActivity(c.Request.Context(), middleware.Subject(c), limit)
	if err != nil {
		h.fail(c, h.logger(c, op), err)
		return
	}
	c.JSON(http.StatusOK, out)
}
