package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shopup-backend/internal/models"
	"shopup-backend/internal/services"
	"shopup-backend/pkg/auth"
	"shopup-backend/pkg/observability"
)

// Context keys set by the auth middleware.
const (
	ContextUserID      = "user_id"
	ContextEmail       = "email"
	ContextRole        = "role"
	ContextSession     = "session"
	ContextRoleRecord  = "role_record"
	ContextAccessToken = "access_token"
)

// SessionChecker decides whether a request may enter a page area.
type SessionChecker interface {
	Check(ctx context.Context, accessToken string, policy services.Policy) services.Decision
}

type AuthMiddleware struct {
	guard        SessionChecker
	sessions     auth.SessionProvider
	accessCookie string
}

func NewAuthMiddleware(guard SessionChecker, sessions auth.SessionProvider, accessCookie string) *AuthMiddleware {
	return &AuthMiddleware{guard: guard, sessions: sessions, accessCookie: accessCookie}
}

// Require gates the routes behind it with policy. Browsers are redirected;
// API clients get 401 (login) or 403 (verification) with the redirect target.
func (a *AuthMiddleware) Require(policy services.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := a.AccessToken(c)
		decision := a.guard.Check(c.Request.Context(), token, policy)
		if decision.Authorized() {
			setSession(c, decision.Session, policy.Area)
			if decision.Record != nil {
				c.Set(ContextRoleRecord, decision.Record)
			}
			c.Next()
			return
		}

		if decision.Redirect != "" && wantsHTML(c) {
			c.Redirect(http.StatusFound, decision.Redirect)
			c.Abort()
			return
		}

		status, code := http.StatusUnauthorized, "Unauthorized"
		if decision.Outcome == services.OutcomeRedirectVerification {
			status, code = http.StatusForbidden, "Verification required"
		}
		c.AbortWithStatusJSON(status, gin.H{
			"error":    code,
			"redirect": decision.Redirect,
		})
	}
}

// OptionalSession attaches the user when a valid session is present and lets
// every request through.
func (a *AuthMiddleware) OptionalSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := a.AccessToken(c)
		if token != "" && a.sessions != nil {
			if session, err := a.sessions.GetSession(c.Request.Context(), token); err == nil && session != nil {
				setSession(c, session, "")
			}
		}
		c.Next()
	}
}

// AccessToken reads the bearer token, falling back to the session cookie.
func (a *AuthMiddleware) AccessToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if a.accessCookie != "" {
		if cookie, err := c.Cookie(a.accessCookie); err == nil {
			return cookie
		}
	}
	return ""
}

func setSession(c *gin.Context, session *models.Session, area string) {
	if session == nil {
		return
	}
	c.Set(ContextUserID, session.User.ID)
	c.Set(ContextEmail, session.User.Email)
	c.Set(ContextRole, session.User.Role)
	c.Set(ContextSession, session)
	c.Set(ContextAccessToken, session.AccessToken)

	ctx := observability.WithUser(c.Request.Context(), observability.User{
		ID:    session.User.ID,
		Email: session.User.Email,
		Area:  area,
	})
	c.Request = c.Request.WithContext(ctx)
}

func wantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}

// GetUserID helper function to extract user ID from context
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// GetUserRole helper function to extract user role from context
func GetUserRole(c *gin.Context) string {
	return c.GetString(ContextRole)
}

func GetSession(c *gin.Context) *models.Session {
	if v, ok := c.Get(ContextSession); ok {
		if session, ok := v.(*models.Session); ok {
			return session
		}
	}
	return nil
}

func GetRoleRecord(c *gin.Context) *models.RoleRecord {
	if v, ok := c.Get(ContextRoleRecord); ok {
		if record, ok := v.(*models.RoleRecord); ok {
			return record
		}
	}
	return nil
}
