package handlers

import (
	"net/http"
	"strings"

	"auber_controller/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey       = "userId"
	identityKey     = "identity"
	tokenQueryParam = "access_token"

	errMissingAuth   = "missing Authorization header"
	errAuthFormat    = "invalid Authorization header format"
	errBadToken      = "invalid or expired token"
	errOperatorsOnly = "operator role required"
)

// userIdMiddleware requires a bearer token. Browsers cannot set headers on a WebSocket
// upgrade, so ?access_token= is accepted when the header is absent.
func (h *Handler) userIdMiddleware(c *gin.Context) {
	token, errMsg := bearerToken(c)
	if errMsg != "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMsg})
		return
	}

	id, err := h.services.ParseToken(token)
	if err != nil {
		if h.log != nil {
			h.log.Infow("auth_token_rejected", "path", c.FullPath(), "err", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errBadToken})
		return
	}

	c.Set(userIDKey, id.UserID)
	c.Set(identityKey, id)
	c.Next()
}

// requireOperator runs after userIdMiddleware and stops viewers from changing anything.
func (h *Handler) requireOperator(c *gin.Context) {
	v, _ := c.Get(identityKey)
	id, ok := v.(service.Identity)
	if !ok || !id.CanOperate() {
		if h.log != nil {
			h.log.Infow("auth_operator_required", "path", c.FullPath(), "user_id", id.UserID, "role", id.Role)
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errOperatorsOnly})
		return
	}
	c.Next()
}

func bearerToken(c *gin.Context) (string, string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if q := strings.TrimSpace(c.Query(tokenQueryParam)); q != "" {
			return q, ""
		}
		return "", errMissingAuth
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errAuthFormat
	}
	return strings.TrimSpace(parts[1]), ""
}
