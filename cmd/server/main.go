package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/adapter/notify"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
	"github.com/rl1809/storefront/pkg/config"
	"github.com/rl1809/storefront/pkg/logger"
	"github.com/rl1809/storefront/pkg/metrics"
	"github.com/rl1809/storefront/pkg/shutdown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{Service: "storefront", Env: cfg.AppEnv, Level: cfg.LogLevel, AddSource: true})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	db := mustMySQL(ctx, log, cfg.MySQLDSN)
	defer db.Close()

	rdb := mustRedis(ctx, log, cfg.RedisAddr)
	defer rdb.Close()

	// Adapters
	mysqlAdapter := storage.NewMySQLAdapter(db, storage.WithStockDecrement(cfg.StockDecrement))
	sessions := storage.NewRedisAdapter(rdb, cfg.SessionTTL)

	var notifier port.Notifier = notify.NewLogNotifier(log)
	if len(cfg.KafkaBrokers) > 0 {
		kn := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kn.Close()
		notifier = kn
		log.Info("order notifications via kafka",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("topic", cfg.KafkaTopic))
	}

	// Services
	catalogSvc := service.NewCatalogService(mysqlAdapter, cfg.PageSize)
	cartSvc := service.NewCartService(mysqlAdapter, log)
	checkoutSvc := service.NewCheckoutService(cartSvc, mysqlAdapter, notifier, log)
	accountSvc := service.NewAccountService(mysqlAdapter)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewServerMetrics(reg)

	httpHandler := handler.NewHTTPHandler(catalogSvc, cartSvc, checkoutSvc, accountSvc, sessions, m, log, handler.HTTPConfig{
		SessionTTL:    cfg.SessionTTL,
		SecureCookie:  cfg.AppEnv == "prod",
		FeaturedLimit: cfg.FeaturedLimit,
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           httpHandler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	handler.RegisterStorefrontServer(grpcServer,
		handler.NewGRPCHandler(catalogSvc, cartSvc, checkoutSvc, accountSvc, sessions, log))

	grpcAddr := fmt.Sprintf(":%d", cfg.GRPCPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Error("listen failed", slog.Any("err", err), slog.String("addr", grpcAddr))
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("grpc starting", slog.String("addr", grpcAddr))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		log.Info("http starting", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown requested")

		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()

		if err := httpServer.Shutdown(stopCtx); err != nil {
			log.Warn("http shutdown", slog.Any("err", err))
		}

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopCtx.Done():
			log.Warn("graceful stop timeout, forcing stop")
			grpcServer.Stop()
		case <-stopped:
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", slog.Any("err", err))
	}
	log.Info("bye")
}

func mustMySQL(ctx context.Context, log *slog.Logger, dsn string) *sql.DB {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Error("mysql open failed", slog.Any("err", err))
		os.Exit(1)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Error("mysql ping failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := storage.Migrate(ctx, db); err != nil {
		log.Error("migrate failed", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("connected to mysql")
	return db
}

func mustRedis(ctx context.Context, log *slog.Logger, addr string) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("redis ping failed", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("connected to redis")
	return rdb
}
