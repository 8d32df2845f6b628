package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shopup-backend/internal/models"
)

// Claims of a Supabase access token.
type Claims struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 access tokens signed with the project JWT secret
// without a round trip to the auth service. Revocation is only seen through the
// remote provider, so SignOut is forwarded there when one is set.
type JWTVerifier struct {
	secretKey []byte
	issuer    string
	remote    SessionProvider
	now       func() time.Time
}

func NewJWTVerifier(secretKey, issuer string, remote SessionProvider) *JWTVerifier {
	return &JWTVerifier{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		remote:    remote,
		now:       time.Now,
	}
}

func (j *JWTVerifier) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return j.secretKey, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.Subject == "" {
			return nil, errors.New("token has no subject")
		}
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

func (j *JWTVerifier) GetSession(_ context.Context, accessToken string) (*models.Session, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, ErrNoSession
	}

	claims, err := j.ValidateToken(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	session := &models.Session{
		AccessToken: accessToken,
		User: models.SessionUser{
			ID:    claims.Subject,
			Email: claims.Email,
			Role:  claims.Role,
		},
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

func (j *JWTVerifier) SignOut(ctx context.Context, accessToken string) error {
	if j.remote == nil {
		return nil
	}
	return j.remote.SignOut(ctx, accessToken)
}

// GenerateToken signs a token the way the auth service does. Used for local
// development and tests.
func (j *JWTVerifier) GenerateToken(userID, email, role string, ttl time.Duration) (string, error) {
	now := j.now()
	claims := &Claims{
		Email:     email,
		Role:      role,
		SessionID: fmt.Sprintf("%d", now.UnixNano()),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    j.issuer,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}
