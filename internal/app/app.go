// Package app 两个入口共用的装配：logger、数据库、缓存、服务与路由依赖
package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"eco-haat/internal/core/auth"
	"eco-haat/internal/core/cache"
	"eco-haat/internal/core/config"
	"eco-haat/internal/core/database"
	"eco-haat/internal/core/logger"
	"eco-haat/internal/feature/account"
	"eco-haat/internal/feature/cart"
	"eco-haat/internal/feature/catalog"
	"eco-haat/internal/feature/dashboard"
	"eco-haat/internal/feature/order"
	"eco-haat/internal/feature/product"
	"eco-haat/internal/repo"
	"eco-haat/internal/transport/http/router"
)

// NewLogger 按配置构建 logger（可选文件切割），并把标准库 log 导入 zap
func NewLogger(cfg *config.Config) (*zap.Logger, func()) {
	f := cfg.Log.File
	l, cleanup := logger.NewWithRotate(cfg.Log.Level, cfg.Log.JSON, logger.FileRotate{
		Enable:     f.Enable,
		Filename:   f.Filename,
		MaxSizeMB:  f.MaxSizeMB,
		MaxBackups: f.MaxBackups,
		MaxAgeDays: f.MaxAgeDays,
		Compress:   f.Compress,
	})
	undo := logger.RedirectStdLog(l.Named("stdlog"), zapcore.InfoLevel)
	return l, func() {
		undo()
		cleanup()
	}
}

func ginMode(env string) string {
	switch env {
	case "local", "dev":
		return "debug"
	case "test":
		return "test"
	}
	return "release"
}

func openDB(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Logger:             l,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if cfg.DB.AutoMigrate {
		if err := repo.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}
	return db, nil
}

// Wire 组装全部依赖；返回的 close 负责释放 DB 与 Redis 连接
func Wire(cfg *config.Config, l *zap.Logger) (*router.Deps, func(), error) {
	db, err := openDB(cfg, l)
	if err != nil {
		return nil, nil, err
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	var c *cache.Cache
	if cfg.Redis.Addr != "" {
		c = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
		l.Info("redis cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	jwter := &auth.JWTer{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, TTL: cfg.JWT.TTL()}
	users := repo.NewUserRepo(db)
	products := repo.NewProductRepo(db)
	categories := repo.NewCategoryRepo(db)
	orders := repo.NewOrderRepo(db)
	carts := repo.NewCartRepo(db)

	d := &router.Deps{
		Log:      l,
		DB:       db,
		Cache:    c,
		Sessions: &auth.SessionResolver{JWT: jwter, Profiles: users},
		Accounts: account.NewService(users, jwter, l.Named("account")),
		Products: product.NewService(products,
			product.WithCategories(categories),
			product.WithLogger(l.Named("product")),
		),
		Catalog: catalog.NewService(categories, products, c,
			time.Duration(cfg.Redis.CategoryTTLSec)*time.Second, l.Named("catalog")),
		Cart:   cart.NewService(carts, products),
		Orders: order.NewService(orders, carts, l.Named("order")),
		Stats:  dashboard.NewService(products, users, orders),
		Mode:   ginMode(cfg.App.Env),
		Web:    cfg.Web,
		Limits: cfg.Limits,
	}
	closeAll := func() {
		if err := c.Close(); err != nil {
			l.Warn("redis close", zap.Error(err))
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return d, closeAll, nil
}
