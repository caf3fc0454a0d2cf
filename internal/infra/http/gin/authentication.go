package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"stagerent/internal/app/principal"
)

const (
	headerUserID    = "X-User-ID"
	headerUserRoles = "X-User-Roles"
)

// HeaderAuth trusts the identity headers set by the gateway in front of the
// service. Requests without X-User-ID stay anonymous.
type HeaderAuth struct {
	Logger *slog.Logger
}

func (m HeaderAuth) Handle(c *gin.Context) {
	id := strings.TrimSpace(c.GetHeader(headerUserID))
	if id == "" {
		c.Next()
		return
	}
	roles := splitRoles(c.GetHeader(headerUserRoles))
	if len(roles) == 0 {
		roles = []string{principal.RoleCustomer}
	}
	for _, r := range roles {
		if r == principal.RoleSystem {
			if m.Logger != nil {
				m.Logger.Warn("system role rejected from header", "user_id", id)
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "system role cannot be asserted"})
			return
		}
	}
	p := principal.Principal{ID: id, Roles: roles}
	c.Request = c.Request.WithContext(principal.WithPrincipal(c.Request.Context(), p))
	c.Next()
}

func splitRoles(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func requireRole(c *gin.Context, role string) (principal.Principal, bool) {
	p, ok := principal.FromContext(c.Request.Context())
	if !ok || p.ID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return principal.Principal{}, false
	}
	if role != "" && !p.HasRole(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return principal.Principal{}, false
	}
	return p, true
}
