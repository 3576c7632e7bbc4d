package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"eco-haat/internal/app"
	"eco-haat/internal/core/config"
	"eco-haat/internal/core/server"
	"eco-haat/internal/domain"
	"eco-haat/internal/feature/account"
	"eco-haat/internal/transport/http/router"
)

func main() {
	grant := flag.String("grant-admin", "", "promote the profile with this email to admin and exit")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := app.NewLogger(cfg)
	defer cleanup()

	deps, closeDeps, err := app.Wire(cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer closeDeps()

	// admin 角色只能通过命令行授予
	if *grant != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := grantAdmin(ctx, deps.Accounts, *grant, os.Stdout)
		cancel()
		if err != nil {
			log.Error("grant admin failed", zap.String("email", *grant), zap.Error(err))
			// os.Exit 不执行 defer
			closeDeps()
			cleanup()
			os.Exit(1)
		}
		return
	}

	// 路由（后台端）
	r := router.NewAdminEngine(deps)

	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(addr, r, 5*time.Second, 10*time.Second, 60*time.Second)

	host4human := cfg.App.Admin.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("admin_v1", baseURL+"/admin/v1"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := server.Run(ctx, srv, 10*time.Second, log); err != nil {
		log.Error("admin api stopped with error", zap.Error(err))
		return
	}
	log.Info("admin api stopped gracefully")
}

func grantAdmin(ctx context.Context, accounts *account.Service, email string, out io.Writer) error {
	p, err := accounts.GrantRole(ctx, email, domain.RoleAdmin)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s is now admin (id %s)\n", p.Email, p.ID)
	return nil
}
