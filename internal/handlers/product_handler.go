package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shopup-backend/internal/models"
	"shopup-backend/internal/services"
)

type ProductHandler struct {
	productService ProductServiceInterface
}

func NewProductHandler(productService ProductServiceInterface) *ProductHandler {
	return &ProductHandler{productService: productService}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProduct)
	}
}

// @Summary List products
// @Description Active products, newest first
// @Tags products
// @Produce json
// @Param seller_id query string false "Seller ID"
// @Param category query string false "Category"
// @Param limit query int false "Items per page (default: 24)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Product
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "24"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	products, err := h.productService.ListProducts(c.Request.Context(), models.ProductFilter{
		SellerID: c.Query("seller_id"),
		Category: c.Query("category"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Failed to load products", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, products)
}

// @Summary Get product by ID
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} models.Product
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Product not found", Message: err.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Failed to load product", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, product)
}
