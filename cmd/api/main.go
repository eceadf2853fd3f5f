package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"formgate.org/internal/auth"
	"formgate.org/internal/config"
	"formgate.org/internal/httpapi"
	"formgate.org/internal/obs"
	"formgate.org/internal/ratelimit"
	"formgate.org/internal/submission"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := obs.NewLogger(cfg.Log.Level)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	obs.SetLogger(logger)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	obs.Init()
	obs.InitBuildInfo(version, commit, cfg.Env)

	creds := auth.Credentials{
		Username:     cfg.Admin.Username,
		Password:     cfg.Admin.Password,
		PasswordHash: cfg.Admin.PasswordHash,
	}
	if !creds.Configured() {
		logger.Warn("admin credentials are not configured; admin endpoints will reject every request")
	}
	if cfg.CSRF.Secret == "" {
		logger.Warn("csrf.secret is empty; anti-forgery tokens are not enforced")
	}

	storeOpts := submission.Options{Retention: cfg.Retention.Period}
	api := httpapi.New(httpapi.Options{
		Version:     version,
		Production:  cfg.Production(),
		Credentials: creds,
		Limits: httpapi.Limits{
			Waitlist: httpapi.Limit(cfg.RateLimit.Waitlist),
			Contact:  httpapi.Limit(cfg.RateLimit.Contact),
			Login:    httpapi.Limit(cfg.RateLimit.Login),
		},
		FloodPerSecond: cfg.RateLimit.Global.PerSecond,
		FloodBurst:     cfg.RateLimit.Global.Burst,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		Waitlist:       submission.NewWaitlistStore(storeOpts),
		Contacts:       submission.NewContactStore(storeOpts),
		Sessions:       auth.NewSessionStore(cfg.Admin.SessionTTL),
		Limiter:        ratelimit.New(),
		CSRF:           auth.NewCSRF(cfg.CSRF.Secret, cfg.CSRF.TTL, nil),
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	logger.Info("starting formgate-api",
		zap.String("version", version),
		zap.String("addr", srv.Addr),
		zap.String("env", cfg.Env),
	)

	// graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
	case err := <-errCh:
		logger.Fatal("listen", zap.Error(err))
	}
	logger.Info("shutting down")
	api.SetDraining(true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("stopped")
}
