package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/phototranslate/internal/common"
	"github.com/joseph-ayodele/phototranslate/internal/pipeline"
)

const (
	ScanServiceName = "phototranslate.v1.ScanService"
	ScanMethod      = "/" + ScanServiceName + "/Scan"

	// request metadata keys
	mdModel     = "x-ocr-model"
	mdTarget    = "x-target-language"
	mdFileName  = "x-file-name"
	mdForce     = "x-force"
	mdTranslate = "x-translate"
)

// ScanServiceServer scans raw image bytes and returns the outcome as a JSON-shaped struct.
type ScanServiceServer interface {
	Scan(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error)
}

// ScanServiceDesc describes phototranslate.v1.ScanService for registration without generated stubs.
var ScanServiceDesc = grpc.ServiceDesc{
	ServiceName: ScanServiceName,
	HandlerType: (*ScanServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Scan", Handler: scanHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "phototranslate/v1/scan.proto",
}

func scanHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScanServiceServer).Scan(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ScanMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScanServiceServer).Scan(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

type ScanService struct {
	processor *pipeline.Processor
	logger    *slog.Logger
}

func NewScanService(proc *pipeline.Processor, logger *slog.Logger) *ScanService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanService{processor: proc, logger: logger}
}

// Scan reads options from request metadata: x-ocr-model, x-target-language, x-file-name,
// x-force and x-translate.
func (s *ScanService) Scan(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	if len(req.GetValue()) == 0 {
		return nil, status.Error(codes.InvalidArgument, "image bytes are required")
	}
	in := pipeline.ScanInput{Data: req.GetValue(), Name: "grpc-upload"}
	md, _ := metadata.FromIncomingContext(ctx)
	if v := firstMD(md, mdFileName); v != "" {
		in.Name = v
	}
	opts := scanOptions{
		Model:     firstMD(md, mdModel),
		Target:    firstMD(md, mdTarget),
		Translate: firstMD(md, mdTranslate),
		Force:     firstMD(md, mdForce),
	}
	if err := opts.apply(&in, s.processor.Preferences().DefaultTargetLanguage); err != nil {
		return nil, common.ToStatus(err)
	}

	out, err := s.processor.ProcessImage(ctx, in)
	res, cerr := toStruct(out)
	if err != nil {
		if out.TranslationError == "" {
			s.logger.Error("grpc.scan.failed", "file", in.Name, "error", err)
			return nil, common.ToStatus(err)
		}
		// recognition succeeded; the outcome rides along as a status detail
		st := status.New(translationFailureCode(err), out.TranslationError)
		if cerr == nil {
			if detailed, derr := st.WithDetails(res); derr == nil {
				st = detailed
			}
		}
		s.logger.Warn("grpc.scan.translation_failed", "file", in.Name, "scan_id", out.ScanID, "error", err)
		return nil, st.Err()
	}
	if cerr != nil {
		return nil, common.InternalError("encode outcome: " + cerr.Error())
	}
	return res, nil
}

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

func firstMD(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}

// NewGRPCServer registers the health and scan services. A non-empty secret requires an
// HS256 bearer token in the authorization metadata on every non-health call.
func NewGRPCServer(proc *pipeline.Processor, cfg common.ServerConfig, logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(
		loggingInterceptor(logger),
		authInterceptor([]byte(cfg.JWTSecret)),
	))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ScanServiceName, healthpb.HealthCheckResponse_SERVING)
	gs.RegisterService(&ScanServiceDesc, NewScanService(proc, logger))
	return gs, hs
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		ctx, id := common.EnsureRequestID(ctx)
		resp, err := handler(ctx, req)
		logger.Info("grpc.request",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"request_id", id,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

func authInterceptor(secret []byte) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if len(secret) == 0 || strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") {
			return handler(ctx, req)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		raw, ok := strings.CutPrefix(firstMD(md, "authorization"), "Bearer ")
		if !ok || raw == "" {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		claims := &jwt.RegisteredClaims{}
		tok, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims,
			func(*jwt.Token) (any, error) { return secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !tok.Valid {
			return nil, status.Error(codes.Unauthenticated, "invalid bearer token")
		}
		return handler(common.WithSubject(ctx, claims.Subject), req)
	}
}
