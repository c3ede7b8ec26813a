package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"ib_dashboard/internal/models"

	_ "modernc.org/sqlite"
)

// Storage управляет базой данных дашборда
type Storage struct {
	db *sql.DB

	// Порог квалификации из конфигурации, применяется пока
	// пользователь не сохранил свой
	defaultThreshold int

	logger *slog.Logger
}

// New создает новый экземпляр Storage
func New(dbPath string, defaultThreshold int, logger *slog.Logger) (*Storage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	storage := &Storage{
		db:               db,
		defaultThreshold: defaultThreshold,
		logger:           logger,
	}

	if err := storage.init(); err != nil {
		return nil, err
	}

	return storage, nil
}

// init инициализирует таблицы БД
func (s *Storage) init() error {
	migrationSQL := `
-- IB Dashboard Database Schema

-- Пользователи дашборда (партнёры и админы)
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'partner',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Маркетинговые кампании
CREATE TABLE IF NOT EXISTS campaigns (
    id TEXT PRIMARY KEY,
    user_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    referrer_tag TEXT NOT NULL,
    cost REAL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(user_id, name),
    FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_campaigns_user ON campaigns(user_id);

-- Маркетинговые материалы
CREATE TABLE IF NOT EXISTS assets (
    id TEXT PRIMARY KEY,
    user_id INTEGER NOT NULL,
    campaign_id TEXT,
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    url TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE,
    FOREIGN KEY(campaign_id) REFERENCES campaigns(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_assets_user ON assets(user_id);

-- Заявки на выплату
CREATE TABLE IF NOT EXISTS payout_requests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    amount REAL NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    comment TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_payouts_user ON payout_requests(user_id);
CREATE INDEX IF NOT EXISTS idx_payouts_status ON payout_requests(status);

-- Настройки партнёра
CREATE TABLE IF NOT EXISTS settings (
    user_id INTEGER PRIMARY KEY,
    qualification_threshold INTEGER DEFAULT 3,
    notify_payouts INTEGER DEFAULT 1,
    notify_connection INTEGER DEFAULT 1,
    FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);

-- Журнал действий
CREATE TABLE IF NOT EXISTS activity_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER,
    level TEXT NOT NULL,
    action TEXT NOT NULL,
    message TEXT NOT NULL,
    details TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_activity_log_user ON activity_log(user_id);
CREATE INDEX IF NOT EXISTS idx_activity_log_created ON activity_log(created_at DESC);
`

	if _, err := s.db.Exec(migrationSQL); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	s.logger.Info("✅ Dashboard database initialized")

	return nil
}

// === User Management ===

// CreateUser создает нового пользователя дашборда
func (s *Storage) CreateUser(username, passwordHash, role string) (*models.User, error) {
	result, err := s.db.Exec(`
		INSERT INTO users (username, password_hash, role)
		VALUES (?, ?, ?)
	`, username, passwordHash, role)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, _ := result.LastInsertId()

	return &models.User{
		ID:           int(id),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now(),
	}, nil
}

// GetUserByUsername получает пользователя по имени
func (s *Storage) GetUserByUsername(username string) (*models.User, error) {
	var user models.User

	err := s.db.QueryRow(`
		SELECT id, username, password_hash, role, created_at
		FROM users
		WHERE username = ?
	`, username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// GetUserByID получает пользователя по ID
func (s *Storage) GetUserByID(id int) (*models.User, error) {
	var user models.User

	err := s.db.QueryRow(`
		SELECT id, username, password_hash, role, created_at
		FROM users
		WHERE id = ?
	`, id).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// === Campaigns ===

// CreateCampaign создает кампанию
func (s *Storage) CreateCampaign(c models.Campaign) error {
	_, err := s.db.Exec(`
		INSERT INTO campaigns (id, user_id, name, referrer_tag, cost)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.UserID, c.Name, c.ReferrerTag, c.Cost)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	s.logger.Info("✅ Campaign created",
		slog.String("id", c.ID),
		slog.String("name", c.Name),
		slog.Int("user_id", c.UserID))

	return nil
}

// GetCampaigns возвращает кампании пользователя
func (s *Storage) GetCampaigns(userID int) ([]models.Campaign, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, name, referrer_tag, cost, created_at
		FROM campaigns
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		var c models.Campaign

		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.ReferrerTag, &c.Cost, &c.CreatedAt); err != nil {
			continue
		}

		campaigns = append(campaigns, c)
	}

	return campaigns, nil
}

// GetCampaign возвращает одну кампанию пользователя
func (s *Storage) GetCampaign(userID int, id string) (*models.Campaign, error) {
	var c models.Campaign

	err := s.db.QueryRow(`
		SELECT id, user_id, name, referrer_tag, cost, created_at
		FROM campaigns
		WHERE user_id = ? AND id = ?
	`, userID, id).Scan(&c.ID, &c.UserID, &c.Name, &c.ReferrerTag, &c.Cost, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// UpdateCampaign обновляет кампанию
func (s *Storage) UpdateCampaign(c models.Campaign) error {
	result, err := s.db.Exec(`
		UPDATE campaigns SET name = ?, referrer_tag = ?, cost = ?
		WHERE user_id = ? AND id = ?
	`, c.Name, c.ReferrerTag, c.Cost, c.UserID, c.ID)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("campaign not found")
	}

	return nil
}

// DeleteCampaign удаляет кампанию
func (s *Storage) DeleteCampaign(userID int, id string) error {
	result, err := s.db.Exec("DELETE FROM campaigns WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("campaign not found")
	}

	s.logger.Info("✅ Campaign deleted",
		slog.String("id", id),
		slog.Int("user_id", userID))

	return nil
}

// === Assets ===

// CreateAsset создает маркетинговый материал
func (s *Storage) CreateAsset(a models.Asset) error {
	var campaignID any
	if a.CampaignID != "" {
		campaignID = a.CampaignID
	}

	_, err := s.db.Exec(`
		INSERT INTO assets (id, user_id, campaign_id, name, type, url)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.UserID, campaignID, a.Name, a.Type, a.URL)
	if err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}

	return nil
}

// GetAssets возвращает материалы пользователя
func (s *Storage) GetAssets(userID int) ([]models.Asset, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, COALESCE(campaign_id, ''), name, type, url, created_at
		FROM assets
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []models.Asset
	for rows.Next() {
		var a models.Asset

		if err := rows.Scan(&a.ID, &a.UserID, &a.CampaignID, &a.Name, &a.Type, &a.URL, &a.CreatedAt); err != nil {
			continue
		}

		assets = append(assets, a)
	}

	return assets, nil
}

// DeleteAsset удаляет материал
func (s *Storage) DeleteAsset(userID int, id string) error {
	result, err := s.db.Exec("DELETE FROM assets WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("asset not found")
	}

	return nil
}

// === Payout Requests ===

// CreatePayoutRequest создает заявку на выплату
func (s *Storage) CreatePayoutRequest(userID int, amount float64, comment string) (*models.PayoutRequest, error) {
	result, err := s.db.Exec(`
		INSERT INTO payout_requests (user_id, amount, status, comment)
		VALUES (?, ?, ?, ?)
	`, userID, amount, models.PayoutPending, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to create payout request: %w", err)
	}

	id, _ := result.LastInsertId()

	s.logger.Info("✅ Payout request created",
		slog.Int64("id", id),
		slog.Int("user_id", userID),
		slog.Float64("amount", amount))

	return &models.PayoutRequest{
		ID:        int(id),
		UserID:    userID,
		Amount:    amount,
		Status:    models.PayoutPending,
		Comment:   comment,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}, nil
}

// GetPayoutRequests возвращает заявки пользователя
func (s *Storage) GetPayoutRequests(userID int) ([]models.PayoutRequest, error) {
	return s.queryPayouts(`
		SELECT id, user_id, amount, status, COALESCE(comment, ''), created_at, updated_at
		FROM payout_requests
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
}

// GetAllPayoutRequests возвращает все заявки (для админа)
func (s *Storage) GetAllPayoutRequests() ([]models.PayoutRequest, error) {
	return s.queryPayouts(`
		SELECT id, user_id, amount, status, COALESCE(comment, ''), created_at, updated_at
		FROM payout_requests
		ORDER BY created_at DESC
	`)
}

func (s *Storage) queryPayouts(query string, args ...any) ([]models.PayoutRequest, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payouts []models.PayoutRequest
	for rows.Next() {
		var p models.PayoutRequest

		if err := rows.Scan(&p.ID, &p.UserID, &p.Amount, &p.Status, &p.Comment, &p.CreatedAt, &p.UpdatedAt); err != nil {
			continue
		}

		payouts = append(payouts, p)
	}

	return payouts, nil
}

// UpdatePayoutStatus меняет статус заявки
func (s *Storage) UpdatePayoutStatus(id int, status string) error {
	result, err := s.db.Exec(`
		UPDATE payout_requests SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, id)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("payout request not found")
	}

	s.logger.Info("✅ Payout status updated",
		slog.Int("id", id),
		slog.String("status", status))

	return nil
}

// === Settings ===

// GetSettings возвращает настройки пользователя (с дефолтами)
func (s *Storage) GetSettings(userID int) (models.Settings, error) {
	settings := models.Settings{
		UserID:                 userID,
		QualificationThreshold: s.defaultThreshold,
		NotifyPayouts:          true,
		NotifyConnection:       true,
	}

	var notifyPayouts, notifyConnection int

	err := s.db.QueryRow(`
		SELECT qualification_threshold, notify_payouts, notify_connection
		FROM settings
		WHERE user_id = ?
	`, userID).Scan(&settings.QualificationThreshold, &notifyPayouts, &notifyConnection)
	if err != nil {
		if err == sql.ErrNoRows {
			return settings, nil
		}

		return settings, err
	}

	settings.NotifyPayouts = notifyPayouts == 1
	settings.NotifyConnection = notifyConnection == 1

	return settings, nil
}

// SaveSettings сохраняет настройки пользователя
func (s *Storage) SaveSettings(settings models.Settings) error {
	notifyPayouts := 0
	if settings.NotifyPayouts {
		notifyPayouts = 1
	}

	notifyConnection := 0
	if settings.NotifyConnection {
		notifyConnection = 1
	}

	_, err := s.db.Exec(`
		INSERT INTO settings (user_id, qualification_threshold, notify_payouts, notify_connection)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			qualification_threshold = excluded.qualification_threshold,
			notify_payouts = excluded.notify_payouts,
			notify_connection = excluded.notify_connection
	`, settings.UserID, settings.QualificationThreshold, notifyPayouts, notifyConnection)

	return err
}

// ConnectionAlertsEnabled сообщает, ждёт ли хоть кто-то уведомлений
// о потере сессии. Без сохранённых настроек уведомления включены.
func (s *Storage) ConnectionAlertsEnabled() bool {
	var total, enabled int

	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(notify_connection), 0)
		FROM settings
	`).Scan(&total, &enabled)
	if err != nil {
		s.logger.Error("Failed to check connection alert settings", slog.Any("error", err))

		return true
	}

	return total == 0 || enabled > 0
}

// === Activity Log ===

// AddLog добавляет запись в журнал
func (s *Storage) AddLog(_ context.Context, log models.ActivityLog) error {
	_, err := s.db.Exec(`
		INSERT INTO activity_log (user_id, level, action, message, details)
		VALUES (?, ?, ?, ?, ?)
	`, log.UserID, log.Level, log.Action, log.Message, log.Details)

	return err
}

// GetLogs получает журнал с пагинацией
func (s *Storage) GetLogs(userID int, limit, offset int) ([]models.ActivityLog, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, level, action, message, COALESCE(details, ''), created_at
		FROM activity_log
		WHERE user_id = ? OR user_id IS NULL
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ActivityLog
	for rows.Next() {
		var log models.ActivityLog

		if err := rows.Scan(&log.ID, &log.UserID, &log.Level, &log.Action, &log.Message, &log.Details, &log.CreatedAt); err != nil {
			continue
		}

		logs = append(logs, log)
	}

	return logs, nil
}

// Close закрывает соединение с БД
func (s *Storage) Close() error {
	return s.db.Close()
}
