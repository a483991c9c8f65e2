package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	ServiceName = "Project Management API"
	Version     = "1.0.0"
)

// Health handles GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Root handles GET /
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": ServiceName, "version": Version})
}
