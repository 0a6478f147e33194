package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/masaladesk/masaladesk/internal/catalog/domain"
)

func (s *Server) ListProducts(c *gin.Context) {
	products, err := s.catalogSvc.ListProducts(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req catalogdomain.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	product, err := s.catalogSvc.CreateProduct(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (s *Server) GetProductByID(c *gin.Context) {
	product, err := s.catalogSvc.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) UpdateProduct(c *gin.Context) {
	var req catalogdomain.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	product, err := s.catalogSvc.UpdateProduct(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) ListMenuItems(c *gin.Context) {
	items, err := s.catalogSvc.ListMenuItems(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"menu_items": items})
}

func (s *Server) CreateMenuItem(c *gin.Context) {
	var req catalogdomain.CreateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	item, err := s.catalogSvc.CreateMenuItem(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) GetMenuItemByID(c *gin.Context) {
	item, err := s.catalogSvc.GetMenuItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) ListPaymentMethods(c *gin.Context) {
	methods, err := s.catalogSvc.ListPaymentMethods(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment_methods": methods})
}
