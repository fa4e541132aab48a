package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/audit_backend/appctx"
)

var (
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyProjectId     = appctx.ContextKeyProjectId
	ContextKeyStandard      = appctx.ContextKeyStandard
)

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func GetProjectIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyProjectId)
}

func GetStandardFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyStandard)
}

func SetCorrelationIdInContext(ctx context.Context, id string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, id)
}

func SetProjectIdInContext(ctx context.Context, id string) context.Context {
	return appctx.Set(ctx, ContextKeyProjectId, id)
}

func SetStandardInContext(ctx context.Context, standard string) context.Context {
	return appctx.Set(ctx, ContextKeyStandard, standard)
}
