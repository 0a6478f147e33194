package authorization

import (
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
)

// RoleHeader carries the caller's resolved role, set by the upstream
// authenticating proxy.
const RoleHeader = "X-Role"

// Require rejects the request unless the caller's role may perform act.
func Require(enforcer *casbin.Enforcer, act string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetHeader(RoleHeader)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "missing_role", "message": "role header is required"},
			})
			return
		}

		ok, err := enforcer.Enforce(role, act)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{"code": "internal", "message": "authorization check failed"},
			})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"code": "forbidden", "message": "role may not perform this action"},
			})
			return
		}
		c.Next()
	}
}
