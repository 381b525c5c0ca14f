package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/technosupport/vms-analytics/internal/auth"
	"github.com/technosupport/vms-analytics/internal/tokens"
)

type TokenValidator interface {
	ValidateToken(tokenString string) (*tokens.Claims, error)
}

type JWTAuth struct {
	tokens    TokenValidator
	blacklist auth.TokenBlacklist
}

// NewJWTAuth builds the auth middleware. A nil blacklist disables revocation checks.
func NewJWTAuth(t TokenValidator, b auth.TokenBlacklist) *JWTAuth {
	return &JWTAuth{tokens: t, blacklist: b}
}

// Middleware verifies the JWT and injects AuthContext
func (m *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			unauthorized(w)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(w)
			return
		}

		claims, err := m.tokens.ValidateToken(parts[1])
		if err != nil || claims.TokenType != tokens.Access {
			unauthorized(w)
			return
		}

		companyID, err := uuid.Parse(claims.CompanyID)
		if err != nil {
			unauthorized(w)
			return
		}
		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			unauthorized(w)
			return
		}

		if m.blacklist != nil {
			revoked, err := m.blacklist.IsBlacklisted(r.Context(), claims.CompanyID, claims.ID)
			if err != nil {
				// fail closed
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("token blacklist lookup failed")
				unauthorized(w)
				return
			}
			if revoked {
				unauthorized(w)
				return
			}
		}

		ac := &AuthContext{
			CompanyID: companyID,
			UserID:    userID,
			TokenID:   claims.ID,
		}
		if claims.ExpiresAt != nil {
			ac.ExpiresAt = claims.ExpiresAt.Time
		}

		ctx := WithAuthContext(r.Context(), ac)
		logger := zerolog.Ctx(ctx).With().Str("company_id", companyID.String()).Str("user_id", userID.String()).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx)))
	})
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
