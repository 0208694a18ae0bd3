package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetCashOutflow(c *gin.Context) {
	points, err := s.forecastSvc.GetCashOutflow(c.Request.Context())
	if err != nil {
		AbortWithError(c, "Failed to fetch cash outflow", err)
		return
	}

	c.JSON(http.StatusOK, nonNil(points))
}
