package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/audit_backend/utils"
)

func newRouter(seen *map[string]string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestContextMiddleware(), MetricsMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		ctx := c.Request.Context()
		cid, _ := utils.GetCorrelationIdFromContext(ctx)
		std, _ := utils.GetStandardFromContext(ctx)
		pid, _ := utils.GetProjectIdFromContext(ctx)
		*seen = map[string]string{"cid": cid, "standard": std, "project": pid}
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRequestContextMiddleware_PropagatesHeaders(t *testing.T) {
	var seen map[string]string
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderCorrelationId, "abc-123")
	req.Header.Set(HeaderStandard, "ohada")
	req.Header.Set(HeaderProjectId, "p-9")
	w := httptest.NewRecorder()
	newRouter(&seen).ServeHTTP(w, req)

	if seen["cid"] != "abc-123" || seen["standard"] != "ohada" || seen["project"] != "p-9" {
		t.Fatalf("unexpected context values %v", seen)
	}
	if got := w.Header().Get(HeaderCorrelationId); got != "abc-123" {
		t.Fatalf("correlation id header = %q", got)
	}
}

func TestRequestContextMiddleware_GeneratesCorrelationId(t *testing.T) {
	var seen map[string]string
	w := httptest.NewRecorder()
	newRouter(&seen).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if seen["cid"] == "" || w.Header().Get(HeaderCorrelationId) != seen["cid"] {
		t.Fatalf("expected a generated correlation id, got %q / %q", seen["cid"], w.Header().Get(HeaderCorrelationId))
	}
	if seen["standard"] != "" {
		t.Fatalf("unexpected standard %q", seen["standard"])
	}
}
