package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
	Error     string `json:"error,omitempty"`
}

// Health probes the store with a trivial query so load balancers catch a
// lost database connection, not just a live process.
func (s *Server) Health(c *gin.Context) {
	timestamp := s.clock.Now().Format(time.RFC3339)

	var one int
	if err := s.db.WithContext(c.Request.Context()).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusInternalServerError, healthResponse{
			Status:    "error",
			Timestamp: timestamp,
			Database:  "disconnected",
			Error:     err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: timestamp,
		Database:  "connected",
	})
}
