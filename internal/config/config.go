package config

import (
	"log/slog"
	"os"
	"strconv"

	"ib_dashboard/internal/aggregate"

	"github.com/joho/godotenv"
)

// Config содержит конфигурацию приложения
type Config struct {
	Port      string
	JWTSecret string
	DBPath    string
	LogFile   string
	WebDir    string

	// Upstream торговая платформа
	PlatformAPIURL   string
	PlatformLogin    string
	PlatformPassword string

	// Локальный backend-коллаборатор (OTP/2FA)
	BackendURL string

	// Telegram уведомления (опционально)
	TelegramToken  string
	TelegramChatID int64

	// Порог квалификации реферала по умолчанию
	QualificationThreshold int
}

// Load загружает конфигурацию из .env и переменных окружения
func Load(logger *slog.Logger) *Config {
	// .env опционален, в проде всё приходит из окружения
	if err := godotenv.Load(); err == nil {
		logger.Info("Loaded configuration from .env")
	}

	platformURL := os.Getenv("PLATFORM_API_URL")
	if platformURL == "" {
		logger.Error("❌ PLATFORM_API_URL not set")
		os.Exit(1)
	}

	platformLogin := os.Getenv("PLATFORM_LOGIN")
	platformPassword := os.Getenv("PLATFORM_PASSWORD")

	if platformLogin == "" || platformPassword == "" {
		logger.Error("❌ PLATFORM_LOGIN / PLATFORM_PASSWORD not set")
		os.Exit(1)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "default-secret-change-me-in-production"

		logger.Warn("⚠️  JWT_SECRET not set, using default (insecure!)")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./dashboard.db"
	}

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "dashboard.log"
	}

	webDir := os.Getenv("WEB_DIR")
	if webDir == "" {
		webDir = "./web/"
	}

	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		backendURL = "http://localhost:3001"
	}

	telegramToken := os.Getenv("TELEGRAM_BOT_TOKEN")

	var telegramChatID int64
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			logger.Warn("⚠️  Invalid TELEGRAM_CHAT_ID, notifications disabled", slog.String("value", raw))

			telegramToken = ""
		} else {
			telegramChatID = id
		}
	}

	threshold := aggregate.DefaultQualificationThreshold
	if raw := os.Getenv("QUALIFICATION_THRESHOLD"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			logger.Warn("⚠️  Invalid QUALIFICATION_THRESHOLD, using default", slog.String("value", raw))
		} else {
			threshold = n
		}
	}

	return &Config{
		Port:                   port,
		JWTSecret:              jwtSecret,
		DBPath:                 dbPath,
		LogFile:                logFile,
		WebDir:                 webDir,
		PlatformAPIURL:         platformURL,
		PlatformLogin:          platformLogin,
		PlatformPassword:       platformPassword,
		BackendURL:             backendURL,
		TelegramToken:          telegramToken,
		TelegramChatID:         telegramChatID,
		QualificationThreshold: threshold,
	}
}
