package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/fintelhq/spendsight/internal/analytics/domain"
)

func (s *Server) GetStats(c *gin.Context) {
	req := analyticsdomain.StatsRequest{
		AllTime: c.Query("allTime") == "true",
	}

	resp, err := s.analyticsSvc.GetStats(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, "Failed to fetch stats", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetInvoiceTrends(c *gin.Context) {
	points, err := s.analyticsSvc.ListMonthlyTrends(c.Request.Context())
	if err != nil {
		AbortWithError(c, "Failed to fetch trends", err)
		return
	}

	c.JSON(http.StatusOK, nonNil(points))
}

func (s *Server) GetTopVendors(c *gin.Context) {
	vendors, err := s.analyticsSvc.ListTopVendors(c.Request.Context())
	if err != nil {
		AbortWithError(c, "Failed to fetch vendors", err)
		return
	}

	c.JSON(http.StatusOK, nonNil(vendors))
}

func (s *Server) GetCategorySpend(c *gin.Context) {
	categories, err := s.analyticsSvc.ListCategorySpend(c.Request.Context())
	if err != nil {
		AbortWithError(c, "Failed to fetch category spend", err)
		return
	}

	c.JSON(http.StatusOK, nonNil(categories))
}

func (s *Server) GetVendorInvoiceStats(c *gin.Context) {
	stats, err := s.analyticsSvc.ListVendorInvoiceStats(c.Request.Context())
	if err != nil {
		AbortWithError(c, "Failed to fetch vendor stats", err)
		return
	}

	c.JSON(http.StatusOK, nonNil(stats))
}

// nonNil keeps empty collections rendering as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
