package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ib_dashboard/internal/aggregate"
	"ib_dashboard/internal/api"
	"ib_dashboard/internal/auth"
	"ib_dashboard/internal/backend"
	"ib_dashboard/internal/config"
	"ib_dashboard/internal/notify"
	"ib_dashboard/internal/platform"
	"ib_dashboard/internal/storage"

	"github.com/lmittmann/tint"
)

func main() {
	// Pretty handler для stdout с цветами
	prettyHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen, // "3:04PM"
		AddSource:  false,
		NoColor:    false,
	})

	bootLogger := slog.New(prettyHandler)

	cfg := config.Load(bootLogger)

	// Конфигурация slog для вывода в файл и stdout
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		log.Fatal("Failed to open log file:", err)
	}
	defer logFile.Close()

	// Обычный текстовый handler для файла
	fileHandler := slog.NewTextHandler(logFile, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})

	// Мультиплексируем логи в оба handler'а
	logger := slog.New(&multiHandler{
		handlers: []slog.Handler{prettyHandler, fileHandler},
	})

	logger.Info("=== IB Partner Dashboard ===")

	// Инициализация БД
	store, err := storage.New(cfg.DBPath, cfg.QualificationThreshold, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	// Инициализация auth сервиса
	authService := auth.NewService(cfg.JWTSecret, 24*time.Hour) // Токен действителен 24 часа

	// Telegram уведомления (опционально)
	notifier, err := notify.New(cfg.TelegramToken, cfg.TelegramChatID, logger)
	if err != nil {
		logger.Error("Failed to initialize Telegram notifier", slog.Any("error", err))
		os.Exit(1)
	}

	// Сессия торговой платформы
	rest := platform.NewRESTClient(cfg.PlatformAPIURL, logger)
	sessionManager := platform.NewSessionManager(rest, platform.Credentials{
		Login:    cfg.PlatformLogin,
		Password: cfg.PlatformPassword,
	}, logger)

	sessionManager.SetConnectionLostHandler(func(err error) {
		logger.Error("❌ Platform session lost", slog.Any("error", err))

		if notifier.Enabled() && store.ConnectionAlertsEnabled() {
			notifier.ConnectionLost(err)
		}
	})

	rates := aggregate.DefaultRateTable()
	aggregator := aggregate.New(logger)
	dataService := api.NewDataService(sessionManager, aggregator, rates, logger)
	defer dataService.Close()

	// Realtime-события схлопываются в одно обновление снимка:
	// буфер 1, лишние сигналы отбрасываются
	refreshCh := make(chan struct{}, 1)

	kickRefresh := func(platform.PushEvent) {
		select {
		case refreshCh <- struct{}{}:
		default:
		}
	}

	sessionManager.SetTradeHandler(kickRefresh)
	sessionManager.SetAccountHandler(kickRefresh)

	go func() {
		for range refreshCh {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)

			if err := dataService.Refresh(ctx); err != nil {
				logger.Warn("⚠️  Snapshot refresh failed", slog.Any("error", err))
			}

			cancel()
		}
	}()

	// Подключаемся к платформе в фоне: дашборд поднимается и без неё,
	// выборки начнут работать после установления сессии
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if _, err := sessionManager.Connect(ctx); err != nil {
			logger.Error("Failed to connect to platform", slog.Any("error", err))
			return
		}

		if err := dataService.Refresh(ctx); err != nil {
			logger.Warn("⚠️  Initial data refresh failed", slog.Any("error", err))
		}
	}()
	defer sessionManager.Disconnect()

	// Backend коллаборатор (OTP/2FA)
	backendClient := backend.NewClient(cfg.BackendURL, logger)

	// Инициализация API handler
	apiHandler := api.New(store, authService, sessionManager, dataService, backendClient, notifier, rates, logger)

	// Настройка роутинга
	router := apiHandler.SetupRouter(cfg.WebDir)

	// HTTP сервер
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("🚀 Server starting...", slog.String("port", cfg.Port))
		logger.Info(fmt.Sprintf("📡 API available at http://localhost:%s/api", cfg.Port))
		logger.Info(fmt.Sprintf("🏥 Health check at http://localhost:%s/health", cfg.Port))

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed to start", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", slog.Any("error", err))
	}

	logger.Info("✅ Server stopped")
}

// multiHandler отправляет логи в несколько handlers одновременно
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (m *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, h := range m.handlers {
		if err := h.Handle(ctx, record); err != nil {
			return err
		}
	}

	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}

	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}

	return &multiHandler{handlers: handlers}
}
