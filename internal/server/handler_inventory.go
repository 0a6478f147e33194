package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type adjustStockRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

func (s *Server) GetStock(c *gin.Context) {
	stock, err := s.ledger.CurrentStock(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": c.Param("id"), "stock": stock})
}

func (s *Server) ListMovements(c *gin.Context) {
	movements, err := s.ledger.Movements(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"movements": movements})
}

func (s *Server) AdjustStock(c *gin.Context) {
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	movement, warnings, err := s.ledger.Adjust(c.Request.Context(), c.Param("id"), req.Quantity)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"movement": movement, "warnings": warnings})
}

func (s *Server) AuditStock(c *gin.Context) {
	if err := s.ledger.Audit(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "consistent"})
}

func (s *Server) RebuildStock(c *gin.Context) {
	stock, err := s.ledger.Rebuild(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": c.Param("id"), "stock": stock})
}
