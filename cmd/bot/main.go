package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gymbot/internal/bot"
	"gymbot/internal/config"
	"gymbot/internal/flow"
	"gymbot/internal/gsheets"
	"gymbot/internal/personalize"
	"gymbot/internal/presets"
	"gymbot/internal/repository"
	"gymbot/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
)

// evictEvery как часто чистится память от брошенных сессий
const evictEvery = "@every 30m"

func main() {
	migrate := flag.Bool("migrate", false, "apply database migrations before start")
	migrateOnly := flag.Bool("migrate-only", false, "apply database migrations and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))

	if err := cfg.ValidateBot(); err != nil && !*migrateOnly {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.DSN()
	if *migrate || *migrateOnly || cfg.AutoMigrate {
		if err := repository.RunMigrations(dsn, cfg.MigrationsPath); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
		if *migrateOnly {
			return
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.DBDriver, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected", "driver", cfg.DBDriver)
	repo := repository.New(db)

	sessions, closeSessions, err := newSessionStore(ctx, cfg, log)
	if err != nil {
		log.Error("session store", "backend", cfg.SessionBackend, "error", err)
		os.Exit(1)
	}
	defer closeSessions()

	p, err := presets.Load(cfg.PresetsPath)
	if err != nil {
		log.Error("failed to load presets", "path", cfg.PresetsPath, "error", err)
		os.Exit(1)
	}
	holder := presets.NewHolder(p)
	if cfg.PresetsPath != "" {
		if err := presets.Watch(ctx, cfg.PresetsPath, holder, log); err != nil {
			log.Warn("presets hot reload disabled", "error", err)
		}
	}

	deps := flow.Deps{
		Catalog:   repo.Catalog,
		Trainings: repo.Training,
		Exercises: personalize.New(repo.Catalog, repo.Training, log),
		Sessions:  sessions,
		Presets:   holder,
		Log:       log,
	}
	if cfg.BackupEnabled() {
		if backup := newBackup(ctx, cfg, log); backup != nil {
			deps.Backup = backup
		}
	}
	machine := flow.New(deps, flow.Config{
		StorageTimeout: cfg.StorageTimeout,
		Location:       cfg.Location,
	})

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Error("failed to connect to Telegram", "error", err)
		os.Exit(1)
	}
	api.Debug = cfg.BotDebug
	log.Info("authorized on account", "username", api.Self.UserName)

	b := bot.New(api, machine, repo.User, log)
	if err := b.Start(ctx); err != nil {
		log.Error("bot stopped", "error", err)
		os.Exit(1)
	}

	machine.Wait()
	log.Info("bot stopped")
}

// newSessionStore возвращает хранилище сессий и функцию его закрытия
func newSessionStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (session.Store, func(), error) {
	if cfg.SessionBackend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		log.Info("sessions in redis", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL.String())
		return session.NewRedisStore(client, cfg.SessionTTL), func() { client.Close() }, nil
	}

	store := session.NewMemoryStore()
	c := cron.New()
	ttl := cfg.SessionTTL
	if err := c.AddFunc(evictEvery, func() {
		if n := store.Evict(time.Now().Add(-ttl)); n > 0 {
			log.Info("evicted idle sessions", "count", n, "remaining", store.Len())
		}
	}); err != nil {
		return nil, nil, err
	}
	c.Start()
	log.Info("sessions in memory", "ttl", ttl.String())
	return store, c.Stop, nil
}

// newBackup подключает Google таблицу. Недоступная таблица не мешает
// боту работать: запись в неё просто отключается.
func newBackup(ctx context.Context, cfg *config.Config, log *slog.Logger) *gsheets.Client {
	client, err := gsheets.NewClient(ctx, cfg.GoogleCredentialsPath, cfg.SpreadsheetID, cfg.SheetName)
	if err != nil {
		log.Warn("spreadsheet backup disabled", "error", err)
		return nil
	}
	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := client.CheckAccess(checkCtx); err != nil {
		log.Warn("spreadsheet backup disabled", "spreadsheet_id", cfg.SpreadsheetID, "error", err)
		return nil
	}
	log.Info("spreadsheet backup enabled", "url", gsheets.GetSpreadsheetURL(cfg.SpreadsheetID))
	return client
}
