package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	httpctx "github.com/authgate/authgate-server/internal/api/http/context"
	"github.com/authgate/authgate-server/internal/api/http/router"
	httpServer "github.com/authgate/authgate-server/internal/api/http/server"
	"github.com/authgate/authgate-server/internal/config"
	"github.com/authgate/authgate-server/internal/logger"
	"github.com/authgate/authgate-server/internal/repository/postgres"
	"github.com/authgate/authgate-server/internal/service"
	"github.com/authgate/authgate-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	passkeyRepo := postgres.NewPasskeyRepository(db)
	tokenManager := token.NewJWT(cfg.Token.Secret, cfg.Token.PreviousSecret, cfg.Token.SessionTTL, cfg.Token.ChallengeTTL)

	authService := service.NewAuth(userRepo, tokenManager, cfg.Bootstrap.Token, logger)
	totpService := service.NewTOTP(userRepo, tokenManager, cfg.TOTP.Issuer, logger)
	passkeyService, err := service.NewPasskey(userRepo, passkeyRepo, tokenManager,
		cfg.WebAuthn.RPID, cfg.WebAuthn.RPName, cfg.WebAuthn.RPOrigin, logger)
	if err != nil {
		logger.Fatal("failed to initialize passkey service", "error", err)
	}
	sessionService := service.NewSession(tokenManager)
	ctxMgr := httpctx.NewManager()

	r := router.New(authService, totpService, passkeyService, sessionService, ctxMgr, logger)

	var certFile, keyFile string
	if cfg.HTTP.EnableHTTPS {
		certFile = cfg.HTTP.CertFileName
		keyFile = cfg.HTTP.PrivateKeyFileName
	}
	server := httpServer.NewHTTPServer(r.Register(), cfg.HTTP.Address, certFile, keyFile)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("Starting server on", "address", server.Address())
		if err := server.Start(); err != nil {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", server.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
