// ====================================
// File: cmd/terminal/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/drift-terminal/internal/config"
	"github.com/rovshanmuradov/drift-terminal/internal/drift"
	"github.com/rovshanmuradov/drift-terminal/internal/logger"
	"github.com/rovshanmuradov/drift-terminal/internal/server"
	"github.com/rovshanmuradov/drift-terminal/internal/session"
	"github.com/rovshanmuradov/drift-terminal/internal/wallet"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("Failed to load config", zap.Error(err))
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		LogFile:     cfg.LogFile,
		MaxSize:     100,
		MaxAge:      7,
		MaxBackups:  3,
		Compress:    true,
		Development: cfg.DebugLogging,
	})
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("Failed to initialize logger", zap.Error(err))
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting drift terminal",
		zap.Strings("rpc_list", cfg.RPCList),
		zap.Bool("demo_mode", cfg.DemoMode))

	conn, err := drift.NewConnection(cfg.RPCList, rpc.CommitmentType(cfg.Commitment), log.Logger)
	if err != nil {
		log.Fatal("Failed to create RPC connection", zap.Error(err))
	}

	// Без приватного ключа доступны только view-only сессии.
	var signer *wallet.Wallet
	if cfg.PrivateKey != "" {
		signer, err = wallet.NewWallet(cfg.PrivateKey)
		if err != nil {
			log.Fatal("Failed to load signing wallet", zap.Error(err))
		}
		log.Info("Signing wallet loaded", zap.String("address", signer.String()))
	}

	initializer := session.NewInitializer(conn, signer, cfg.MinSolBalance, log)

	srv := server.New(server.Config{
		Initializer: initializer,
		Store:       session.NewStore(),
		DemoDefault: cfg.DemoMode,
		Logger:      log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, cfg.ListenAddr); err != nil {
		log.Fatal("HTTP server stopped", zap.Error(err))
	}
	log.Info("Shutdown complete")
}
