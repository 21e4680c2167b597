package server

import (
	"context"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/posform-export/internal/async"
	"github.com/joseph-ayodele/posform-export/internal/common"
	"github.com/joseph-ayodele/posform-export/internal/pipeline"
)

const (
	ConversionServiceName = "posform.v1.ConversionService"
	ConvertFolderMethod   = "/" + ConversionServiceName + "/ConvertFolder"
)

// conversionService is the handler contract checked by grpc.RegisterService.
type conversionService interface {
	ConvertFolder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ConversionServer exposes folder conversion over gRPC. Requests and
// responses are google.protobuf.Struct values:
//
//	request:  {"folder": string, "workers": number}
//	response: {"run_id", "status", "summary", "table_file": string,
//	           "total", "processed", "row_count", "failed": number}
type ConversionServer struct {
	conv   async.Converter
	logger *slog.Logger
}

func NewConversionServer(conv async.Converter, logger *slog.Logger) *ConversionServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversionServer{conv: conv, logger: logger}
}

func (s *ConversionServer) ConvertFolder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	folder := strings.TrimSpace(fields["folder"].GetStringValue())
	workers := int(fields["workers"].GetNumberValue())

	if err := common.NewValidator().
		Field("folder", folder, common.Required).
		Field("workers", workers, common.AtLeast(0)).
		AppError(common.CodeInvalidRequest); err != nil {
		return nil, common.ToStatus(err)
	}

	var opts []pipeline.Option
	if workers > 0 {
		opts = append(opts, pipeline.WithWorkers(workers))
	}

	res, err := s.conv.ConvertFolder(ctx, folder, opts...)
	if err != nil {
		s.logger.Error("grpc.convert.failed", "folder", folder, "error", err)
		return nil, common.ToStatus(err)
	}

	out, err := structpb.NewStruct(map[string]any{
		"run_id":     res.RunID.String(),
		"status":     string(res.Status),
		"summary":    res.Summary,
		"table_file": res.TableFile,
		"total":      res.Total,
		"processed":  res.Processed,
		"row_count":  res.RowCount,
		"failed":     len(res.Failed),
	})
	if err != nil {
		return nil, common.InternalError(err.Error())
	}
	return out, nil
}

func convertFolderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(conversionService).ConvertFolder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ConvertFolderMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(conversionService).ConvertFolder(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var conversionServiceDesc = grpc.ServiceDesc{
	ServiceName: ConversionServiceName,
	HandlerType: (*conversionService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ConvertFolder", Handler: convertFolderHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "posform/v1/conversion.proto",
}

// Register installs the conversion service and a health service reporting
// SERVING on s.
func Register(s *grpc.Server, conv *ConversionServer) *health.Server {
	s.RegisterService(&conversionServiceDesc, conv)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ConversionServiceName, healthpb.HealthCheckResponse_SERVING)
	return hs
}

// ConvertFolder is the client side of the conversion RPC.
func ConvertFolder(ctx context.Context, cc grpc.ClientConnInterface, folder string, workers int) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(map[string]any{"folder": folder, "workers": workers})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, ConvertFolderMethod, req, out); err != nil {
		return nil, err
	}
	return out, nil
}
