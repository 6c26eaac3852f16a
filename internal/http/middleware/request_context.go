package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentline-backend/internal/platform/ctxutil"
)

// AttachRequestContext installs an empty RequestData that auth fills in later,
// so loggers running after c.Next() see the resolved actor.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if ctxutil.GetRequestData(ctx) == nil {
			ctx = ctxutil.WithRequestData(ctx, &ctxutil.RequestData{})
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
