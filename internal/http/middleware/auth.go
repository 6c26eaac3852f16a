package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/contentline-backend/internal/platform/ctxutil"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
)

// ActorClaims are the token claims the API understands. The actor recorded in
// created_by/changed_by/withdrawn_by is Actor when set, otherwise Subject.
type ActorClaims struct {
	Actor string `json:"actor,omitempty"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
}

// NewAuthMiddleware validates HS256 bearer tokens signed with secret. An empty
// secret disables authentication: requests run as the default actor.
func NewAuthMiddleware(log *logger.Logger, secret string) *AuthMiddleware {
	middlewareLogger := log.With("Middleware", "AuthMiddleware")
	return &AuthMiddleware{log: middlewareLogger, secret: []byte(strings.TrimSpace(secret))}
}

func (am *AuthMiddleware) Enabled() bool { return am != nil && len(am.secret) > 0 }

// RequireAuth rejects requests without a valid token when auth is enabled.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !am.Enabled() {
			c.Next()
			return
		}
		tokenString := extractBearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		actor, err := am.actorFromToken(tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": err.Error(), "code": "unauthorized"},
			})
			return
		}
		ctx := c.Request.Context()
		if rd := ctxutil.GetRequestData(ctx); rd != nil {
			rd.Actor = actor
		} else {
			ctx = ctxutil.WithRequestData(ctx, &ctxutil.RequestData{Actor: actor})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func (am *AuthMiddleware) actorFromToken(tokenString string) (string, error) {
	claims := &ActorClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	actor := strings.TrimSpace(claims.Actor)
	if actor == "" {
		actor = strings.TrimSpace(claims.Subject)
	}
	if actor == "" {
		return "", errors.New("token has no subject")
	}
	return actor, nil
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
