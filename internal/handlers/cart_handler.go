package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shopup-backend/internal/middleware"
	"shopup-backend/internal/models"
	"shopup-backend/internal/services"
)

type CartHandler struct {
	cartService CartServiceInterface
	guestCookie string
	cookieTTL   time.Duration
}

func NewCartHandler(cartService CartServiceInterface, guestCookie string, cookieTTL time.Duration) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		guestCookie: guestCookie,
		cookieTTL:   cookieTTL,
	}
}

// RegisterRoutes registers the routes for cart management. The cart belongs
// to the signed-in user, or to the guest cookie when there is no session.
func (h *CartHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	cart := router.Group("/cart", authMiddleware.OptionalSession())
	{
		cart.GET("", h.GetCart)
		cart.GET("/count", h.CountItems)
		cart.GET("/summary", h.GetSummary)
		cart.POST("/items", h.AddItem)
		cart.PATCH("/items/:product_id", h.ChangeQuantity)
		cart.DELETE("/items/:product_id", h.RemoveItem)
		cart.DELETE("", h.ClearCart)
	}
}

// GetCart godoc
// @Summary Get cart
// @Description Get the cart lines of the current user or guest
// @Tags cart
// @Produce json
// @Success 200 {object} CartResponse
// @Router /api/v1/cart [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	owner := h.cartOwner(c, false)
	c.JSON(http.StatusOK, cartResponse(h.cartService.GetCart(c.Request.Context(), owner)))
}

// @Summary Count cart items
// @Description Sum of quantities in the cart
// @Tags cart
// @Produce json
// @Success 200 {object} map[string]int
// @Router /api/v1/cart/count [get]
func (h *CartHandler) CountItems(c *gin.Context) {
	owner := h.cartOwner(c, false)
	c.JSON(http.StatusOK, gin.H{"count": h.cartService.CountItems(c.Request.Context(), owner)})
}

// @Summary Get cart summary
// @Description Cart priced against the current catalog
// @Tags cart
// @Produce json
// @Success 200 {object} models.CartSummary
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/cart/summary [get]
func (h *CartHandler) GetSummary(c *gin.Context) {
	owner := h.cartOwner(c, false)
	summary, err := h.cartService.Summary(c.Request.Context(), owner)
	if err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "Failed to price cart",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// AddItem godoc
// @Summary Add item to cart
// @Description Add a product to the cart, merging with an existing line
// @Tags cart
// @Accept json
// @Produce json
// @Param item body AddCartItemRequest true "Cart item"
// @Success 200 {object} CartResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.cartService.Add(c.Request.Context(), h.cartOwner(c, true), req.ProductID, quantity)
	if err != nil {
		h.writeError(c, "Failed to add item to cart", err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(cart))
}

// ChangeQuantity godoc
// @Summary Change cart item quantity
// @Description Add delta to the quantity of a cart line; lines reaching zero are removed
// @Tags cart
// @Accept json
// @Produce json
// @Param product_id path string true "Product ID"
// @Param request body ChangeQuantityRequest true "Quantity delta"
// @Success 200 {object} CartResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/cart/items/{product_id} [patch]
func (h *CartHandler) ChangeQuantity(c *gin.Context) {
	var req ChangeQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	owner := h.cartOwner(c, false)
	if owner == "" {
		c.JSON(http.StatusOK, cartResponse(models.Cart{}))
		return
	}

	cart, err := h.cartService.ChangeQty(c.Request.Context(), owner, c.Param("product_id"), req.Delta)
	if err != nil {
		h.writeError(c, "Failed to update cart item", err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(cart))
}

// @Summary Remove item from cart
// @Tags cart
// @Produce json
// @Param product_id path string true "Product ID"
// @Success 200 {object} CartResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/cart/items/{product_id} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	owner := h.cartOwner(c, false)
	if owner == "" {
		c.JSON(http.StatusOK, cartResponse(models.Cart{}))
		return
	}

	cart, err := h.cartService.Remove(c.Request.Context(), owner, c.Param("product_id"))
	if err != nil {
		h.writeError(c, "Failed to remove item from cart", err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(cart))
}

// @Summary Clear cart
// @Tags cart
// @Success 204
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/cart [delete]
func (h *CartHandler) ClearCart(c *gin.Context) {
	owner := h.cartOwner(c, false)
	if owner == "" {
		c.Status(http.StatusNoContent)
		return
	}

	if err := h.cartService.Clear(c.Request.Context(), owner); err != nil {
		h.writeError(c, "Failed to clear cart", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// cartOwner returns the user id of the session, else the guest id from the
// cookie. With issue set a guest id is created when there is none.
func (h *CartHandler) cartOwner(c *gin.Context, issue bool) string {
	if userID := middleware.GetUserID(c); userID != "" {
		return userID
	}

	if guestID, err := c.Cookie(h.guestCookie); err == nil {
		if _, err := uuid.Parse(guestID); err == nil {
			return guestID
		}
	}
	if !issue {
		return ""
	}

	guestID := uuid.NewString()
	setCookie(c, h.guestCookie, guestID, int(h.cookieTTL.Seconds()))
	return guestID
}

func (h *CartHandler) writeError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidQuantity), errors.Is(err, services.ErrInvalidProduct):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Message: err.Error()})
	case errors.Is(err, services.ErrCartNotSaved):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: message, Message: "Cart could not be saved, please try again"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: message, Message: err.Error()})
	}
}

func cartResponse(cart models.Cart) CartResponse {
	return CartResponse{Items: cart, ItemCount: cart.ItemCount()}
}
