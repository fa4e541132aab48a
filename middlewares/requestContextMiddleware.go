package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bitbucket.org/mmdatafocus/audit_backend/utils"
)

const (
	HeaderCorrelationId = "X-Correlation-Id"
	HeaderStandard      = "X-Accounting-Standard"
	HeaderProjectId     = "X-Project-Id"
)

// RequestContextMiddleware copies the correlation id, accounting standard and
// project id headers into the request context. A missing correlation id is
// generated and echoed back.
func RequestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := strings.TrimSpace(c.GetHeader(HeaderCorrelationId))
		if cid == "" {
			cid = uuid.NewString()
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), cid)
		if s := strings.TrimSpace(c.GetHeader(HeaderStandard)); s != "" {
			ctx = utils.SetStandardInContext(ctx, s)
		}
		if p := strings.TrimSpace(c.GetHeader(HeaderProjectId)); p != "" {
			ctx = utils.SetProjectIdInContext(ctx, p)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderCorrelationId, cid)
		c.Next()
	}
}
