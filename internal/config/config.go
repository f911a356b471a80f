package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит конфигурацию приложения
type Config struct {
	BotToken string
	BotDebug bool

	DBDriver       string // postgres (lib/pq) или pgx
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	MigrationsPath string
	AutoMigrate    bool

	Location       *time.Location
	StorageTimeout time.Duration
	PresetsPath    string // пусто: встроенные пресеты

	// Сессии диалога
	SessionBackend string // memory или redis
	SessionTTL     time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	// Google Sheets
	GoogleCredentialsPath string
	SpreadsheetID         string
	SheetName             string

	// Админка
	AdminAddr        string
	JWTSecret        string
	JWTTTL           time.Duration
	AdminUsername    string
	AdminPassword    string
	AdminTelegramIDs []int64
	CORSOrigins      []string

	LogLevel string
}

// Load загружает конфигурацию из переменных окружения или .env файла.
// Переменные окружения имеют приоритет над .env.
func Load() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	var errs []error
	getDuration := func(key string, def time.Duration) time.Duration {
		d, err := time.ParseDuration(getEnv(key, def.String()))
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, getEnv(key, "")))
			return def
		}
		return d
	}
	getBool := func(key string) bool {
		b, err := strconv.ParseBool(getEnv(key, "false"))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid boolean %q", key, getEnv(key, "")))
		}
		return b
	}

	cfg := &Config{
		BotToken: getEnv("BOT_TOKEN", ""),
		BotDebug: getBool("BOT_DEBUG"),

		DBDriver:       getEnv("DB_DRIVER", "postgres"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "postgres"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		AutoMigrate:    getBool("AUTO_MIGRATE"),

		StorageTimeout: getDuration("STORAGE_TIMEOUT", 5*time.Second),
		PresetsPath:    getEnv("PRESETS_PATH", ""),

		SessionBackend: strings.ToLower(getEnv("SESSION_BACKEND", "memory")),
		SessionTTL:     getDuration("SESSION_TTL", 24*time.Hour),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),

		GoogleCredentialsPath: getEnv("GOOGLE_CREDENTIALS_PATH", ""),
		SpreadsheetID:         getEnv("SPREADSHEET_ID", ""),
		SheetName:             getEnv("SHEET_NAME", "Sheet1"),

		AdminAddr:     getEnv("ADMIN_ADDR", ":8080"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTTTL:        getDuration("JWT_TTL", 7*24*time.Hour),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		CORSOrigins:   splitList(getEnv("ADMIN_CORS_ORIGINS", "*")),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Local"))
	if err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
		loc = time.Local
	}
	cfg.Location = loc

	if cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		errs = append(errs, fmt.Errorf("REDIS_DB: %w", err))
	}

	for _, s := range splitList(getEnv("ADMIN_TELEGRAM_IDS", "")) {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("ADMIN_TELEGRAM_IDS: invalid id %q", s))
			continue
		}
		cfg.AdminTelegramIDs = append(cfg.AdminTelegramIDs, id)
	}

	switch cfg.DBDriver {
	case "postgres", "pgx":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unsupported driver %q", cfg.DBDriver))
	}
	switch cfg.SessionBackend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("SESSION_BACKEND: unsupported backend %q", cfg.SessionBackend))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// ValidateBot проверяет параметры, обязательные для бота
func (c *Config) ValidateBot() error {
	if c.BotToken == "" {
		return errors.New("BOT_TOKEN не задан")
	}
	if (c.SpreadsheetID == "") != (c.GoogleCredentialsPath == "") {
		return errors.New("SPREADSHEET_ID и GOOGLE_CREDENTIALS_PATH задаются вместе")
	}
	return nil
}

// ValidateAdmin проверяет параметры, обязательные для админки.
// Токен бота нужен для проверки подписи Telegram.
func (c *Config) ValidateAdmin() error {
	if c.BotToken == "" {
		return errors.New("BOT_TOKEN не задан")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET не задан")
	}
	return nil
}

// BackupEnabled включена ли выгрузка в Google Sheets
func (c *Config) BackupEnabled() bool {
	return c.SpreadsheetID != "" && c.GoogleCredentialsPath != ""
}

// Level уровень slog из LOG_LEVEL (debug, info, warn, error); неизвестное значение даёт info
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// DSN возвращает строку подключения в виде URL; её понимают оба драйвера и golang-migrate
func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
