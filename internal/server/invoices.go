package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/fintelhq/spendsight/internal/invoice/domain"
)

func (s *Server) ListInvoices(c *gin.Context) {
	req := invoicedomain.ListInvoicesRequest{
		Query:        c.Query("q"),
		DocumentType: c.Query("status"),
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, "Failed to fetch invoices", err)
		return
	}

	c.JSON(http.StatusOK, nonNil(resp.Invoices))
}
