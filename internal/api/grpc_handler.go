package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"brand-catalog-service/internal/auth"
	"brand-catalog-service/internal/catalog"
	"brand-catalog-service/internal/export"
)

// CatalogServiceName is the fully qualified gRPC service name.
const CatalogServiceName = "brandcatalog.v1.CatalogService"

// FilenameHeader carries the export file name in the response header metadata.
const FilenameHeader = "x-export-filename"

// CatalogServiceServer is the read API served over gRPC. Catalogs are
// addressed by their external key; responses use well-known types.
type CatalogServiceServer interface {
	GetCatalog(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	ListCategories(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	ExportShopifyCSV(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
}

// GRPCHandler implements CatalogServiceServer.
type GRPCHandler struct {
	catalog  *catalog.Service
	exporter *export.Exporter
	logger   *zap.Logger
}

// NewGRPCHandler creates a new GRPCHandler.
func NewGRPCHandler(svc *catalog.Service, exporter *export.Exporter, logger *zap.Logger) *GRPCHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandler{catalog: svc, exporter: exporter, logger: logger.Named("grpc")}
}

// RegisterCatalogService registers srv on s.
func RegisterCatalogService(s grpc.ServiceRegistrar, srv CatalogServiceServer) {
	s.RegisterService(&catalogServiceDesc, srv)
}

var catalogServiceDesc = grpc.ServiceDesc{
	ServiceName: CatalogServiceName,
	HandlerType: (*CatalogServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetCatalog", Handler: unary("GetCatalog", CatalogServiceServer.GetCatalog)},
		{MethodName: "ListCategories", Handler: unary("ListCategories", CatalogServiceServer.ListCategories)},
		{MethodName: "ExportShopifyCSV", Handler: unary("ExportShopifyCSV", CatalogServiceServer.ExportShopifyCSV)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "brandcatalog/v1/catalog.proto",
}

// unary adapts a typed method to the generic handler signature generated code would produce.
func unary[Resp any](method string, fn func(CatalogServiceServer, context.Context, *wrapperspb.StringValue) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(wrapperspb.StringValue)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(srv.(CatalogServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + CatalogServiceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return fn(srv.(CatalogServiceServer), ctx, req.(*wrapperspb.StringValue))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// --- Helper: Error Mapping ---

func grpcError(err error) error {
	code, msg := statusFor(err)
	switch code {
	case http.StatusUnauthorized:
		return status.Error(codes.Unauthenticated, msg)
	case http.StatusNotFound:
		return status.Error(codes.NotFound, msg)
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return status.Error(codes.InvalidArgument, msg)
	case http.StatusConflict:
		return status.Error(codes.FailedPrecondition, msg)
	case http.StatusServiceUnavailable:
		return status.Error(codes.Unavailable, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}

func catalogKey(req *wrapperspb.StringValue) (string, error) {
	key := strings.TrimSpace(req.GetValue())
	if key == "" {
		return "", status.Error(codes.InvalidArgument, "catalog id is required")
	}
	return key, nil
}

// toStruct converts v through its JSON form so gRPC clients see the same
// field names as HTTP clients.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// --- CatalogService Methods ---

func (h *GRPCHandler) GetCatalog(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	key, err := catalogKey(req)
	if err != nil {
		return nil, err
	}
	user, _ := auth.UserFromContext(ctx)
	c, err := h.catalog.GetCatalogByKey(ctx, user, key)
	if err != nil {
		return nil, grpcError(err)
	}
	out, err := toStruct(c)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode catalog: %v", err)
	}
	return out, nil
}

func (h *GRPCHandler) ListCategories(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	key, err := catalogKey(req)
	if err != nil {
		return nil, err
	}
	user, _ := auth.UserFromContext(ctx)
	c, err := h.catalog.GetCatalogByKey(ctx, user, key)
	if err != nil {
		return nil, grpcError(err)
	}
	categories, err := h.catalog.ListCategories(ctx, user, c.ID)
	if err != nil {
		return nil, grpcError(err)
	}
	out, err := toStruct(map[string]any{"catalog_id": c.CatalogKey, "categories": categories})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode categories: %v", err)
	}
	return out, nil
}

func (h *GRPCHandler) ExportShopifyCSV(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	key, err := catalogKey(req)
	if err != nil {
		return nil, err
	}
	user, _ := auth.UserFromContext(ctx)
	res, err := h.exporter.ExportCatalog(ctx, user, key)
	if err != nil {
		return nil, grpcError(err)
	}
	if err := grpc.SetHeader(ctx, metadata.Pairs(FilenameHeader, res.Filename)); err != nil {
		h.logger.Warn("set filename header", zap.Error(err))
	}
	return wrapperspb.Bytes(res.Body), nil
}

// --- Interceptors ---

// AuthInterceptor verifies the bearer token in the authorization metadata and
// attaches the user. Calls without a valid token proceed anonymously and are
// rejected by the ownership checks.
func AuthInterceptor(tm *auth.TokenManager, logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		for _, header := range md.Get("authorization") {
			raw, err := auth.ExtractBearer(header)
			if err != nil {
				continue
			}
			u, err := tm.Verify(raw)
			if err != nil {
				logger.Debug("rejected grpc bearer token", zap.String("method", info.FullMethod), zap.Error(err))
				continue
			}
			ctx = auth.WithUser(ctx, u)
			break
		}
		return handler(ctx, req)
	}
}

// LoggingInterceptor logs one line per unary call.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("latency", time.Since(start)),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		if code == codes.Internal || code == codes.Unknown {
			logger.Error("rpc", fields...)
		} else {
			logger.Info("rpc", fields...)
		}
		return resp, err
	}
}
