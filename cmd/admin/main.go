package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gymbot/internal/auth"
	"gymbot/internal/config"
	"gymbot/internal/presets"
	"gymbot/internal/repository"
	"gymbot/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))

	if err := cfg.ValidateAdmin(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if cfg.AdminPassword == "" {
		log.Warn("ADMIN_PASSWORD is empty, password login disabled")
	}

	ctx := context.Background()
	db, err := repository.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected", "driver", cfg.DBDriver)
	repo := repository.New(db)

	p, err := presets.Load(cfg.PresetsPath)
	if err != nil {
		log.Error("failed to load presets", "path", cfg.PresetsPath, "error", err)
		os.Exit(1)
	}
	holder := presets.NewHolder(p)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if cfg.PresetsPath != "" {
		if err := presets.Watch(watchCtx, cfg.PresetsPath, holder, log); err != nil {
			log.Warn("presets hot reload disabled", "error", err)
		}
	}

	srv := server.New(server.Deps{
		Catalog:   repo.Catalog,
		Trainings: repo.Training,
		Users:     repo.User,
		Auth: auth.New(auth.Config{
			BotToken:      cfg.BotToken,
			JWTSecret:     cfg.JWTSecret,
			TokenTTL:      cfg.JWTTTL,
			AdminUsername: cfg.AdminUsername,
			AdminPassword: cfg.AdminPassword,
			AdminIDs:      cfg.AdminTelegramIDs,
		}),
		Presets:        holder,
		Location:       cfg.Location,
		AllowedOrigins: cfg.CORSOrigins,
		Log:            log,
	})

	httpSrv := &http.Server{
		Addr:              cfg.AdminAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", cfg.AdminAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
