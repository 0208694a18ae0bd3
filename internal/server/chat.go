package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	chatdomain "github.com/fintelhq/spendsight/internal/chat/domain"
)

func (s *Server) ChatWithData(c *gin.Context) {
	var req chatdomain.GenerateSQLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, "Chat request failed", err)
		return
	}

	raw, err := s.chatSvc.GenerateSQL(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, "Chat request failed", err)
		return
	}

	c.Data(http.StatusOK, "application/json", raw)
}
