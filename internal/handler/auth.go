package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"seedpool/internal/config"
)

// Auth gates the privileged route groups on per-role API keys. The engine
// still re-checks the caller address against its governance config; the
// middleware only keeps unauthenticated traffic off the privileged surface.
type Auth struct {
	Roles config.RolesConfig
}

func (a Auth) RequireAdmin() gin.HandlerFunc    { return requireKey(a.Roles.AdminKey) }
func (a Auth) RequireOracle() gin.HandlerFunc   { return requireKey(a.Roles.OracleKey) }
func (a Auth) RequireMultisig() gin.HandlerFunc { return requireKey(a.Roles.MultisigKey) }

// RequireAdminOrMultisig accepts either key; used for trigger cancellation.
func (a Auth) RequireAdminOrMultisig() gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyMatches(c, a.Roles.AdminKey) || keyMatches(c, a.Roles.MultisigKey) {
			c.Next()
			return
		}
		Error(c, http.StatusUnauthorized, "invalid api key", nil)
		c.Abort()
	}
}

// An empty configured key disables the check for that role; meant for dev
// runs against the simulator.
func requireKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyMatches(c, key) {
			c.Next()
			return
		}
		Error(c, http.StatusUnauthorized, "invalid api key", nil)
		c.Abort()
	}
}

func keyMatches(c *gin.Context, key string) bool {
	if key == "" {
		return true
	}
	presented := strings.TrimSpace(c.GetHeader("X-Api-Key"))
	return subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1
}
