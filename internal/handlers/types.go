package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopup-backend/internal/models"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type AddCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  *int   `json:"quantity"`
}

type ChangeQuantityRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// CartResponse is the cart as returned by the cart endpoints.
type CartResponse struct {
	Items     models.Cart `json:"items"`
	ItemCount int         `json:"itemCount"`
}

// setCookie writes an HttpOnly, SameSite=Lax cookie on the whole site.
func setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", c.Request.TLS != nil, true)
}

func clearCookie(c *gin.Context, name string) {
	setCookie(c, name, "", -1)
}
