package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/posform-export/internal/app"
	"github.com/joseph-ayodele/posform-export/internal/async"
	"github.com/joseph-ayodele/posform-export/internal/common"
	"github.com/joseph-ayodele/posform-export/internal/server"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := common.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// RPCs share the queue so at most FolderWorkers folders convert at once.
	queue := async.NewFolderQueue(ctx, a.Service, logger, async.WithWorkers(cfg.Pipeline.FolderWorkers))
	grpcServer := grpc.NewServer()
	hs := server.Register(grpcServer, server.NewConversionServer(queue, logger))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("listen", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	logger.Info("gRPC serving", "addr", lis.Addr().String())

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	a.Service.Cancel()
	grpcServer.GracefulStop()
	queue.Shutdown(context.Background())
	logger.Info("stopped")
}
