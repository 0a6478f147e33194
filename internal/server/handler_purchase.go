package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	purchasedomain "github.com/masaladesk/masaladesk/internal/purchase/domain"
)

func (s *Server) CreatePurchase(c *gin.Context) {
	var req purchasedomain.CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	purchase, err := s.purchaseSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, purchase)
}

func (s *Server) ListPurchases(c *gin.Context) {
	var req purchasedomain.ListPurchaseRequest
	if raw := c.Query("status"); raw != "" {
		status := purchasedomain.PurchaseStatus(raw)
		req.Status = &status
	}

	purchases, err := s.purchaseSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchases": purchases})
}

func (s *Server) GetPurchaseByID(c *gin.Context) {
	purchase, err := s.purchaseSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchase)
}

func (s *Server) ReceivePurchase(c *gin.Context) {
	purchase, warnings, err := s.purchaseSvc.Receive(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchase": purchase, "warnings": warnings})
}

func (s *Server) ApplyPurchasePayment(c *gin.Context) {
	var req purchasedomain.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	purchase, err := s.purchaseSvc.ApplyPayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchase)
}

func (s *Server) CancelPurchase(c *gin.Context) {
	purchase, err := s.purchaseSvc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchase)
}
