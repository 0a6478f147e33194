package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/masaladesk/masaladesk/internal/authorization"
	orderdomain "github.com/masaladesk/masaladesk/internal/order/domain"
)

type transitionOrderRequest struct {
	Status orderdomain.OrderStatus `json:"status" binding:"required"`
}

func (s *Server) CreateOrder(c *gin.Context) {
	var req orderdomain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	kot, err := s.orderSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, kot)
}

func (s *Server) ListOrders(c *gin.Context) {
	var req orderdomain.ListOrderRequest
	if raw := c.Query("status"); raw != "" {
		status := orderdomain.OrderStatus(raw)
		req.Status = &status
	}
	if raw := c.Query("order_type"); raw != "" {
		orderType := orderdomain.OrderType(raw)
		req.OrderType = &orderType
	}

	kots, err := s.orderSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": kots})
}

func (s *Server) GetOrderByID(c *gin.Context) {
	kot, err := s.orderSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, kot)
}

func (s *Server) TransitionOrder(c *gin.Context) {
	var req transitionOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	kot, err := s.orderSvc.Transition(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, kot)
}

func (s *Server) FinalizeOrder(c *gin.Context) {
	var req orderdomain.FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	// A discount needs manager approval on top of the finalize grant.
	if req.Discount.IsPositive() {
		role := c.GetHeader(authorization.RoleHeader)
		allowed, err := s.enforcer.Enforce(role, authorization.ActOrderDiscount)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"code": "forbidden", "message": "discounts require manager approval"},
			})
			return
		}
	}

	result, err := s.orderSvc.Finalize(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) CancelOrder(c *gin.Context) {
	kot, err := s.orderSvc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, kot)
}

func (s *Server) ReverseOrder(c *gin.Context) {
	kot, err := s.orderSvc.ReverseServed(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, kot)
}

func (s *Server) DeleteOrder(c *gin.Context) {
	if err := s.orderSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
