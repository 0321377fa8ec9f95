package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain/cart"
	"storefront/internal/handler"
	"storefront/internal/infra/db"
	infraRepo "storefront/internal/infra/repository"
	repo "storefront/internal/repository"
	"storefront/internal/server"
	"storefront/internal/usecase"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DB死活監視の間隔とタイムアウト
const (
	dbWatchInterval = 30 * time.Second
	dbPingTimeout   = 5 * time.Second
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "run migrations before serving")
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	//DB接続
	gormDB, err := db.Connect(cfg.DatabaseURL, dbDebug)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if serveMigrate {
		if err := db.Migrate(gormDB); err != nil {
			return err
		}
	}

	//Repository生成
	products := infraRepo.NewProductGormRepository(gormDB)
	var carts repo.CartRepository
	switch cfg.CartStore {
	case config.CartStoreMemory:
		carts = infraRepo.NewCartMemoryRepository()
	default:
		carts = infraRepo.NewCartGormRepository(gormDB)
	}

	//Usecase生成
	productUC := usecase.NewProductUsecase(products, products, cfg.Currency, log)
	cartUC := usecase.NewCartUsecase(carts, products, cart.Policy{Stock: cfg.StockPolicy}, cfg.Currency, log)

	//Handler生成
	e := server.New(cfg, log, server.Handlers{
		Health:  handler.NewHealthHandler(sqlDB.PingContext),
		Product: handler.NewProductHandler(productUC),
		Cart:    handler.NewCartHandler(cartUC),
	})

	log.Info("starting",
		zap.String("cart_store", cfg.CartStore),
		zap.String("stock_policy", string(cfg.StockPolicy)),
		zap.String("currency", cfg.Currency.String()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx, e, server.Addr(cfg.Port), log)
	})
	g.Go(func() error {
		return watchDB(gctx, sqlDB.PingContext, dbWatchInterval, log)
	})
	return g.Wait()
}

// watchDB は停止まで定期的にDBへpingし、失敗したら警告ログを出す。
// 失敗してもサーバは止めない。
func watchDB(ctx context.Context, ping func(context.Context) error, interval time.Duration, logger *zap.Logger) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
		case <-t.C:
		}
		if ctx.Err() != nil {
			logger.Info("shutdown requested")
			return nil
		}

		pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
		err := ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn("db ping failed", zap.Error(err))
		}
	}
}
