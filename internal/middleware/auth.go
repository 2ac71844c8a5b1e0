package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"task-tracker/backend/internal/logger"
	"task-tracker/backend/internal/monitoring"
	"task-tracker/backend/internal/security"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

const (
	bearerPrefix = "Bearer "

	MissingTokenMessage = "No token provided. Authorization header must be in format: Bearer <token>"
)

// Principal identifies the caller of an authenticated request.
type Principal struct {
	UserID uuid.UUID
}

type principalKey struct{}

func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached by Authenticate.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Authenticate rejects requests without a valid bearer token. The token is the
// header value after the exact "Bearer " prefix, taken literally.
func Authenticate(verifier security.TokenVerifier, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("Authenticate")

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			monitoring.ObserveTokenVerification(monitoring.OutcomeMissing)
			abortWithMessage(c, http.StatusUnauthorized, MissingTokenMessage)
			return
		}

		userID, err := verifier.Verify(header[len(bearerPrefix):])
		if err != nil {
			outcome := monitoring.OutcomeInvalid
			if errors.Is(err, security.ErrExpiredToken) {
				outcome = monitoring.OutcomeExpired
			}
			monitoring.ObserveTokenVerification(outcome)
			logger.WithRequestID(c.Request.Context(), log).Debug("Token rejected",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			abortWithMessage(c, http.StatusUnauthorized, err.Error())
			return
		}

		monitoring.ObserveTokenVerification(monitoring.OutcomeSuccess)
		c.Request = c.Request.WithContext(ContextWithPrincipal(c.Request.Context(), Principal{UserID: userID}))
		c.Next()
	}
}

func abortWithMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}
