package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gema-points-api/internal/authz"
	appErrors "github.com/noah-isme/gema-points-api/pkg/errors"
	"github.com/noah-isme/gema-points-api/pkg/response"
)

// RequireCapability gates a route on the capability table. When targetParam is
// non-empty, the named path parameter is treated as the target student id and
// row-level checks apply; otherwise only the role grant is consulted and any
// per-row decision is left to the handler.
func RequireCapability(policy *authz.Policy, op authz.Operation, targetParam string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if targetParam == "" {
			if !policy.HasCapability(identity.Role, op) {
				response.Error(c, appErrors.ErrForbidden)
				c.Abort()
				return
			}
			c.Next()
			return
		}

		target := authz.Target{StudentID: c.Param(targetParam)}
		allowed, err := policy.CanPerform(c.Request.Context(), identity, op, target)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "authorization check failed"))
			c.Abort()
			return
		}
		if !allowed {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
