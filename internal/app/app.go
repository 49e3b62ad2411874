package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/storefront/internal/adapter/catalog"
	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

// App wires the cart, the listing sessions and both servers together.
type App struct {
	cfg       *config.Config
	log       *zap.Logger
	slot      port.SlotRepository
	closeSlot func() error

	Cart     *service.CartStore
	Sessions *service.SessionRegistry
	Catalog  *catalog.HTTPClient

	httpServer *http.Server
	grpcServer *grpc.Server
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	slot, closeSlot, err := OpenSlot(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	cart := service.NewCartStore(slot, cfg.Storage.SlotKey, log)
	cart.Initialize(ctx)
	log.Info("cart loaded", zap.Int("entries", cart.Len()))

	products := catalog.NewHTTPClient(catalog.Config{
		BaseURL:         cfg.Catalog.BaseURL,
		Timeout:         cfg.Catalog.Timeout,
		BreakerFailures: cfg.Catalog.BreakerFailures,
		BreakerCooldown: cfg.Catalog.BreakerCooldown,
	}, log)

	sessions := service.NewSessionRegistry(func() *service.Listing {
		return service.NewListing(products, cart, cfg.Catalog.PageSize)
	}, cfg.Sessions.Idle)

	httpHandler := handler.NewHTTPHandler(cart, sessions, slot, log)
	router := handler.NewRouter(httpHandler, cfg.HTTP.RequestTimeout)

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	handler.RegisterCartServiceServer(grpcServer, handler.NewGRPCHandler(cart, log))

	return &App{
		cfg:       cfg,
		log:       log,
		slot:      slot,
		closeSlot: closeSlot,
		Cart:      cart,
		Sessions:  sessions,
		Catalog:   products,
		httpServer: &http.Server{
			Handler:           otelhttp.NewHandler(router, "storefront.http"),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		grpcServer: grpcServer,
	}, nil
}

// Run listens on the configured addresses and serves until ctx is done.
func (a *App) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", a.cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen http %s: %w", a.cfg.HTTP.Addr, err)
	}
	grpcLis, err := net.Listen("tcp", a.cfg.GRPC.Addr)
	if err != nil {
		httpLis.Close()
		return fmt.Errorf("listen grpc %s: %w", a.cfg.GRPC.Addr, err)
	}
	return a.Serve(ctx, httpLis, grpcLis)
}

// Serve runs both servers on the given listeners. When ctx is done, or either
// server fails, both are shut down gracefully.
func (a *App) Serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("http server listening", zap.String("addr", httpLis.Addr().String()))
		if err := a.httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.log.Info("grpc server listening", zap.String("addr", grpcLis.Addr().String()))
		if err := a.grpcServer.Serve(grpcLis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()

		err := a.httpServer.Shutdown(shutdownCtx)

		// watch streams only end when their clients go away
		stopped := make(chan struct{})
		go func() {
			a.grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			a.grpcServer.Stop()
			<-stopped
		}

		if err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (a *App) Close() error {
	return a.closeSlot()
}
