package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"google.golang.org/grpc"

	"github.com/izzyreal/bbdash/internal/config"
	"github.com/izzyreal/bbdash/internal/server/grpcapi"
	"github.com/izzyreal/bbdash/internal/store"
)

func Run(ctx context.Context) error {
	addr := envOrDefault("BBDASH_SERVER_ADDR", ":8112")
	grpcAddr := envOrDefault("BBDASH_GRPC_ADDR", ":8113")
	dbPath := envOrDefault("BBDASH_DB", "bbdash.db")

	cfg, err := config.LoadOrDefault(os.Getenv("BBDASH_CONFIG"))
	if err != nil {
		return err
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	d := newDashboard(cfg, db)
	go d.history.run(ctx)

	router := buildRouter(d)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcListener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", grpcAddr, err)
	}
	grpcSrv := grpc.NewServer()
	grpcapi.RegisterDashboardServiceServer(grpcSrv, newDashboardGRPCServer(router, d.watchers, watchIntervalFromEnv()))

	stopMDNS := startMDNSAdvertiser(cfg, addr, grpcAddr)
	defer stopMDNS()

	errCh := make(chan error, 2)
	go func() {
		slog.Info("bbdash server started", "addr", addr, "buildmasters", len(cfg.Buildmasters))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen and serve: %w", err)
			return
		}
		errCh <- nil
	}()
	go func() {
		slog.Info("bbdash grpc started", "addr", grpcAddr)
		if err := grpcSrv.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("serve grpc: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		grpcSrv.GracefulStop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		slog.Info("bbdash server stopped")
		return nil
	case err := <-errCh:
		grpcSrv.Stop()
		if err != nil {
			return err
		}
		slog.Info("bbdash server stopped")
		return nil
	}
}
