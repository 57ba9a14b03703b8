package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"admissions-crm/http/response"
	"admissions-crm/logger"

	"github.com/golang-jwt/jwt/v4"
)

// Roles
const (
	RoleAdmin     = "admin"
	RoleCounselor = "counselor"
)

// Claims are the JWT claims this API reads.
type Claims struct {
	Role        string `json:"role"`
	CounselorID int64  `json:"counselor_id,omitempty"`
	jwt.RegisteredClaims
}

type claimsKey struct{}

// ClaimsFrom returns the claims stored by RequireAuth.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// Auth verifies HS256 bearer tokens.
type Auth struct {
	secret []byte
}

func NewAuth(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

// IssueToken signs a token for subject with the given role.
func (a *Auth) IssueToken(subject, role string, counselorID int64, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("JWT_SECRET is not set")
	}
	now := time.Now()
	claims := Claims{
		Role:        role,
		CounselorID: counselorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse validates a token string and returns its claims.
func (a *Auth) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Role != RoleAdmin && claims.Role != RoleCounselor {
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
	return claims, nil
}

// RequireAuth rejects requests without a valid bearer token, or whose role
// is not among roles. No roles means any authenticated caller.
func (a *Auth) RequireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(a.secret) == 0 {
			logger.Error("JWT_SECRET is not set; rejecting %s %s", r.Method, r.URL.Path)
			response.ErrorResponse(w, http.StatusInternalServerError, "Authentication is not configured")
			return
		}

		tokenString, err := bearerToken(r)
		if err != nil {
			response.ErrorResponse(w, http.StatusUnauthorized, err.Error())
			return
		}
		claims, err := a.Parse(tokenString)
		if err != nil {
			logger.Warn("Rejected token on %s: %v", r.URL.Path, err)
			response.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if !allowed(claims.Role, roles) {
			response.ErrorResponse(w, http.StatusForbidden, "Insufficient permissions")
			return
		}

		next(w, r.WithContext(WithClaims(r.Context(), claims)))
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("Missing Authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("Authorization header must be a Bearer token")
	}
	return strings.TrimSpace(token), nil
}

func allowed(role string, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
