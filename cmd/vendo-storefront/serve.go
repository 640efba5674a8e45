package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Kuritho/vendo-finder-final/internal/cart"
	"github.com/Kuritho/vendo-finder-final/internal/catalog"
	"github.com/Kuritho/vendo-finder-final/internal/clients"
	"github.com/Kuritho/vendo-finder-final/internal/db"
	"github.com/Kuritho/vendo-finder-final/internal/events"
	"github.com/Kuritho/vendo-finder-final/internal/geo"
	httpapi "github.com/Kuritho/vendo-finder-final/internal/http"
	"github.com/Kuritho/vendo-finder-final/internal/middleware"
	"github.com/Kuritho/vendo-finder-final/internal/reservation"
	"github.com/Kuritho/vendo-finder-final/internal/sequence"
	"github.com/Kuritho/vendo-finder-final/internal/session"
	"github.com/Kuritho/vendo-finder-final/internal/vendo"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the storefront HTTP server.",
	Long: `Run the storefront HTTP server.

Reservations are kept in Postgres when DATABASE_DSN is set and in memory
otherwise. Accepted orders are announced on RabbitMQ when RABBITMQ_URL is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	// Base HTTP client (shared)
	sharedHTTP := &http.Client{Timeout: cfg.UpstreamTimeout}

	apiBase, err := clients.NewClient("vendo-api", cfg.APIBaseURL, sharedHTTP)
	if err != nil {
		return err
	}
	loader := catalog.NewLoader(
		clients.NewVendoClient(apiBase),
		clients.NewProductClient(apiBase),
		logger,
		cfg.FetchConcurrency,
	)

	// --- storage ---
	var (
		stores reservation.Stores
		seq    sequence.Sequencer
	)
	if cfg.DatabaseDSN != "" {
		if cfg.RunMigrations {
			if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
				return fmt.Errorf("db migrate: %w", err)
			}
		}
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()

		stores = reservation.NewPostgresStores(pool)
		seq = sequence.NewRepository(pool)
		logger.Info("reservations stored in postgres")
	} else {
		stores = reservation.NewMemoryStores()
		seq = sequence.NewMemory()
		logger.Warn("DATABASE_DSN not set, reservations kept in memory")
	}

	// --- AMQP ---
	var publisher events.OrderPlacedPublisher = events.Noop{}
	if cfg.RabbitMQURL != "" {
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			return fmt.Errorf("dial rabbitmq: %w", err)
		}
		defer conn.Close()

		pub, err := events.NewPublisher(conn, seq, events.PublisherOptions{Producer: cfg.EventProducer})
		if err != nil {
			return err
		}
		defer pub.Close()
		publisher = pub
	}

	sessions := session.NewRegistry(cfg.SessionIdleTTL)
	go sessions.Run(ctx, time.Minute, func(removed int) {
		logger.Debug("idle devices swept", zap.Int("removed", removed))
	})

	handler := httpapi.NewHandler(httpapi.Deps{
		Logger: logger,
		Locator: geo.NewLocator(
			vendo.Machines(),
			geo.Coordinate{Latitude: cfg.DefaultLatitude, Longitude: cfg.DefaultLongitude},
			cfg.DefaultMaxDistanceKm,
		),
		Loader:   loader,
		Carts:    cart.NewService(loader, clients.NewOrderClient(apiBase), publisher, logger),
		Stores:   stores,
		Sessions: sessions,
	})
	router := httpapi.NewRouter(handler, httpapi.RouterOptions{
		Logger:           logger,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		DeviceStore:      middleware.NewDeviceStore(cfg.SessionSecret),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}
