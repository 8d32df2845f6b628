package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopup-backend/internal/middleware"
	"shopup-backend/internal/services"
)

// AreaHandler serves the identity endpoints the admin, seller and customer
// pages call on load. Each group sits behind its area's policy.
type AreaHandler struct {
	admin    services.Policy
	seller   services.Policy
	customer services.Policy
}

func NewAreaHandler(admin, seller, customer services.Policy) *AreaHandler {
	return &AreaHandler{admin: admin, seller: seller, customer: customer}
}

func (h *AreaHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	router.GET("/admin/me", authMiddleware.Require(h.admin), h.Me(services.AreaAdmin))
	router.GET("/seller/me", authMiddleware.Require(h.seller), h.Me(services.AreaSeller))
	router.GET("/account/me", authMiddleware.Require(h.customer), h.Me(services.AreaCustomer))
}

// @Summary Current user of a page area
// @Tags areas
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/v1/admin/me [get]
// @Router /api/v1/seller/me [get]
// @Router /api/v1/account/me [get]
func (h *AreaHandler) Me(area string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := middleware.GetSession(c)
		if session == nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized", Message: "No active session"})
			return
		}

		body := gin.H{
			"area": area,
			"user": session.User,
		}
		if record := middleware.GetRoleRecord(c); record != nil {
			body["role"] = record.Value
		}
		c.JSON(http.StatusOK, body)
	}
}
