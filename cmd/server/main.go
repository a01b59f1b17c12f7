// Package main runs the CodeXi authentication API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Bhumit267/CodeXi/internal/api"
	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/core/service"
	"github.com/Bhumit267/CodeXi/internal/infrastructure/queue"
	"github.com/Bhumit267/CodeXi/internal/pkg/clock"
	"github.com/Bhumit267/CodeXi/internal/pkg/config"
	"github.com/Bhumit267/CodeXi/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

//	@title			CodeXi API
//	@version		1.0
//	@description	Account registration, sign-in and session lifecycle for CodeXi.
//	@BasePath		/

// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
// @description				Type "Bearer" followed by a space and the access token.
func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "codexi-api",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.New()

	deps, err := buildDeps(ctx, cfg, clk)
	if err != nil {
		return err
	}
	defer deps.Close(log)

	tokens, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:  cfg.Token.AccessSecret,
		RefreshSecret: cfg.Token.RefreshSecret,
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
	}, clk)
	if err != nil {
		return err
	}

	proxies, err := cfg.TrustedProxyNets()
	if err != nil {
		return err
	}

	authService := service.NewAuthService(deps.users, tokens, deps.guard, logger.Component("auth_service"))
	userService := service.NewUserService(deps.users, logger.Component("user_service"))
	auditService := service.NewAuditService(deps.events, logger.Component("audit_service"))

	dispatcher := queue.NewDispatcher(cfg.AuditWorkers, auditService, logger.Component("audit_dispatcher"))
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher.Start(workerCtx)

	e := api.NewRouter(api.RouterConfig{
		Log:         log,
		AuthService: authService,
		UserService: userService,
		Tokens:      tokens,
		Limiter:     deps.limiter,
		RateLimitPolicy: domain.RateLimitPolicy{
			Window: cfg.RateLimit.Window,
			Max:    cfg.RateLimit.Max,
		},
		Events:          dispatcher,
		ReadinessChecks: deps.checks,
		TrustedProxies:  proxies,
		CORSOrigins:     cfg.CORSOrigins,
		EnableMetrics:   true,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("store", cfg.Store).
			Str("rate_limit_backend", cfg.RateLimit.Backend).
			Bool("rotation_guard", deps.guard != nil).
			Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		stopWorkers()
		dispatcher.Wait()
		return err
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	stopWorkers()
	dispatcher.Wait()
	log.Info().Msg("server stopped")
	return nil
}
