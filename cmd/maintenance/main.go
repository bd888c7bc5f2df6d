package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/JPJPKIMJP/AMLWD/internal/app/maintenanceapp"
	"github.com/JPJPKIMJP/AMLWD/internal/config"
	"github.com/JPJPKIMJP/AMLWD/internal/infra/logger"
)

func main() {
	once := flag.Bool("once", false, "run a single maintenance pass and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	cfgPath := os.Getenv("APP_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	zlog, err := logger.New(cfg.Log.Level, "maintenance", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = zlog.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := maintenanceapp.New(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("create maintenance app", zap.Error(err))
	}
	defer app.Close()

	if *once {
		if err := app.RunOnce(ctx); err != nil {
			zlog.Error("maintenance pass failed", zap.Error(err))
			app.Close()
			os.Exit(1)
		}
		return
	}

	if err := app.Run(ctx); err != nil {
		zlog.Fatal("maintenance app failed", zap.Error(err))
	}
}
