package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/ordersignal-backend/internal/http/response"
	"github.com/yungbote/ordersignal-backend/internal/platform/ctxutil"
	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
)

const (
	HeaderInternalKey = "X-Internal-Key"
	accessTokenType   = "access_token"
)

// Claims are issued by the commerce service; only access tokens are accepted.
type Claims struct {
	Type string `json:"type"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
}

// NewAuthMiddleware takes the base64 encoded HMAC secret shared with the
// token issuer.
func NewAuthMiddleware(log *logger.Logger, encodedSecret string) (*AuthMiddleware, error) {
	secret, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encodedSecret))
	if err != nil {
		return nil, fmt.Errorf("decode jwt secret: %w", err)
	}
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is empty")
	}
	return &AuthMiddleware{log: log.With("Middleware", "AuthMiddleware"), secret: secret}, nil
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing authentication token"))
			return
		}
		claims, err := am.parse(tokenString)
		if err != nil {
			am.log.Debug("Rejected token", "error", err)
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("invalid or expired token"))
			return
		}
		if claims.Type != accessTokenType {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("invalid token type, expected access token"))
			return
		}
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
			UserID: claims.Subject,
			Role:   claims.Role,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ctxutil.GetRequestData(c.Request.Context()).IsAdmin() {
			response.RespondError(c, http.StatusForbidden, "forbidden", errors.New("admin access required"))
			return
		}
		c.Next()
	}
}

func (am *AuthMiddleware) parse(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	}))
	claims := &Claims{}
	tok, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return am.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	return claims, nil
}

// Header first, then the token query parameter, then the token cookie.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	if cookie, err := c.Cookie("token"); err == nil {
		return cookie
	}
	return ""
}

// RequireInternalKey guards service-to-service routes. With an empty key the
// routes are open, which matches deployments that rely on network isolation.
func RequireInternalKey(key string) gin.HandlerFunc {
	key = strings.TrimSpace(key)
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := c.GetHeader(HeaderInternalKey)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("invalid internal key"))
			return
		}
		c.Next()
	}
}
