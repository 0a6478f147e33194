package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/masaladesk/masaladesk/internal/invoice/domain"
)

func (s *Server) ListInvoices(c *gin.Context) {
	var req invoicedomain.ListInvoiceRequest
	if raw := c.Query("status"); raw != "" {
		status := invoicedomain.InvoiceStatus(raw)
		req.Status = &status
	}
	if raw := c.Query("payment_status"); raw != "" {
		req.PaymentStatus = &raw
	}

	invoices, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	invoice, err := s.invoiceSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (s *Server) ApplyInvoicePayment(c *gin.Context) {
	var req invoicedomain.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	invoice, err := s.invoiceSvc.ApplyPayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (s *Server) RefreshOverdueInvoices(c *gin.Context) {
	count, err := s.invoiceSvc.RefreshOverdue(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": count})
}
