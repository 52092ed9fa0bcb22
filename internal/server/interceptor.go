package server

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/exposure-tracker/internal/common"
	"github.com/joseph-ayodele/exposure-tracker/internal/metrics"
)

// Metadata keys read by the interceptor.
const (
	MetadataTenantID  = "x-tenant-id"
	MetadataRequestID = "x-request-id"
)

// UnaryInterceptor scopes each call to the tenant and request id found in metadata,
// logs the outcome and records it. A missing request id is generated and echoed
// back in the response header.
func UnaryInterceptor(logger *slog.Logger, rec *metrics.Recorder) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		method := path.Base(info.FullMethod)
		md, _ := metadata.FromIncomingContext(ctx)

		requestID := first(md, MetadataRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = common.WithRequestID(ctx, requestID)
		_ = grpc.SetHeader(ctx, metadata.Pairs(MetadataRequestID, requestID))

		if raw := first(md, MetadataTenantID); raw != "" {
			tenantID, err := uuid.Parse(raw)
			if err != nil {
				rec.RPC(method, codes.InvalidArgument.String())
				logger.Warn("grpc.request.bad_tenant", "method", method, "request_id", requestID, "tenant", raw)
				return nil, common.InvalidArgumentErrorf("%s must be a UUID", MetadataTenantID)
			}
			ctx = common.WithTenantID(ctx, tenantID)
		}

		resp, err := handler(ctx, req)
		err = common.ToStatus(err)
		code := status.Code(err)
		rec.RPC(method, code.String())

		attrs := []any{
			"method", method,
			"code", code.String(),
			"request_id", requestID,
			"elapsed_ms", time.Since(start).Milliseconds(),
		}
		if tenantID, ok := common.TenantIDFromContext(ctx); ok {
			attrs = append(attrs, "tenant_id", tenantID)
		}
		switch code {
		case codes.OK:
			logger.Info("grpc.request.ok", attrs...)
		case codes.Internal, codes.Unknown:
			logger.Error("grpc.request.error", append(attrs, "error", err)...)
		default:
			logger.Warn("grpc.request.failed", append(attrs, "error", err)...)
		}
		return resp, err
	}
}

func first(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}
