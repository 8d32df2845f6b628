package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shopup-backend/internal/middleware"
	"shopup-backend/internal/services"
	"shopup-backend/pkg/auth"
)

type AuthHandler struct {
	authService  AuthServiceInterface
	accessCookie string
	guestCookie  string
}

func NewAuthHandler(authService AuthServiceInterface, accessCookie, guestCookie string) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		accessCookie: accessCookie,
		guestCookie:  guestCookie,
	}
}

// RegisterRoutes registers the auth routes. loginLimit guards the password
// endpoint.
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware, loginLimit gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", loginLimit, h.Login)
		authGroup.POST("/refresh", loginLimit, h.Refresh)
		authGroup.POST("/logout", authMiddleware.OptionalSession(), h.Logout)
		authGroup.GET("/session", authMiddleware.OptionalSession(), h.Session)
	}
}

// @Summary Login user
// @Description Sign in with email and password; a guest cart is merged into the user's cart
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.LoginRequest true "Login request"
// @Success 200 {object} services.AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} map[string]string
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}

	guestID := ""
	if cookie, err := c.Cookie(h.guestCookie); err == nil {
		if _, err := uuid.Parse(cookie); err == nil {
			guestID = cookie
		}
	}

	response, err := h.authService.Login(c.Request.Context(), &req, guestID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid credentials", Message: err.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Login failed", Message: "Authentication service unavailable"})
		return
	}

	setCookie(c, h.accessCookie, response.AccessToken, response.ExpiresIn)
	if guestID != "" {
		clearCookie(c, h.guestCookie)
	}
	c.JSON(http.StatusOK, response)
}

// @Summary Refresh session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.RefreshRequest true "Refresh request"
// @Success 200 {object} services.AuthResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req services.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}

	response, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrNoSession) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Session expired", Message: "Please sign in again"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Refresh failed", Message: "Authentication service unavailable"})
		return
	}

	setCookie(c, h.accessCookie, response.AccessToken, response.ExpiresIn)
	c.JSON(http.StatusOK, response)
}

// @Summary Logout user
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString(middleware.ContextAccessToken)
	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		_ = c.Error(err)
	}
	clearCookie(c, h.accessCookie)
	c.Status(http.StatusNoContent)
}

// @Summary Get current session
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.Session
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	session := middleware.GetSession(c)
	if session == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized", Message: "No active session"})
		return
	}
	c.JSON(http.StatusOK, session)
}
