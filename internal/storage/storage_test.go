package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"ib_dashboard/internal/models"
)

func testStorage(t *testing.T) *Storage {
	t.Helper()

	return testStorageWithThreshold(t, 3)
}

func testStorageWithThreshold(t *testing.T, threshold int) *Storage {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := New(":memory:", threshold, logger)
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}

	t.Cleanup(func() { s.Close() })

	return s
}

func TestUserLifecycle(t *testing.T) {
	s := testStorage(t)

	user, err := s.CreateUser("alice", "hash123", models.RolePartner)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if user.ID == 0 || user.Role != models.RolePartner {
		t.Errorf("unexpected user: %+v", user)
	}

	got, err := s.GetUserByUsername("alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}

	if got.ID != user.ID || got.PasswordHash != "hash123" {
		t.Errorf("unexpected user: %+v", got)
	}

	byID, err := s.GetUserByID(user.ID)
	if err != nil || byID.Username != "alice" {
		t.Errorf("GetUserByID = %+v, %v", byID, err)
	}

	// Повторная регистрация того же имени запрещена
	if _, err := s.CreateUser("alice", "other", models.RolePartner); err == nil {
		t.Error("duplicate username must fail")
	}
}

func TestCampaignCRUD(t *testing.T) {
	s := testStorage(t)

	user, _ := s.CreateUser("alice", "h", models.RolePartner)

	campaign := models.Campaign{
		ID:          "c-1",
		UserID:      user.ID,
		Name:        "Summer",
		ReferrerTag: "summer2026",
		Cost:        100,
	}

	if err := s.CreateCampaign(campaign); err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}

	// Имя кампании уникально в рамках пользователя
	dup := campaign
	dup.ID = "c-2"
	if err := s.CreateCampaign(dup); err == nil {
		t.Error("duplicate campaign name must fail")
	}

	campaigns, err := s.GetCampaigns(user.ID)
	if err != nil || len(campaigns) != 1 {
		t.Fatalf("GetCampaigns = %+v, %v", campaigns, err)
	}

	campaign.Cost = 250
	campaign.Name = "Summer v2"
	if err := s.UpdateCampaign(campaign); err != nil {
		t.Fatalf("UpdateCampaign: %v", err)
	}

	got, err := s.GetCampaign(user.ID, "c-1")
	if err != nil || got.Cost != 250 || got.Name != "Summer v2" {
		t.Errorf("GetCampaign = %+v, %v", got, err)
	}

	// Чужому пользователю кампания не видна
	if _, err := s.GetCampaign(user.ID+1, "c-1"); err == nil {
		t.Error("campaign must be scoped to its owner")
	}

	if err := s.DeleteCampaign(user.ID, "c-1"); err != nil {
		t.Fatalf("DeleteCampaign: %v", err)
	}

	if err := s.DeleteCampaign(user.ID, "c-1"); err == nil {
		t.Error("deleting a missing campaign must fail")
	}
}

func TestPayoutLifecycle(t *testing.T) {
	s := testStorage(t)

	user, _ := s.CreateUser("alice", "h", models.RolePartner)

	payout, err := s.CreatePayoutRequest(user.ID, 120.50, "july commissions")
	if err != nil {
		t.Fatalf("CreatePayoutRequest: %v", err)
	}

	if payout.Status != models.PayoutPending {
		t.Errorf("new payout status = %q, want pending", payout.Status)
	}

	if err := s.UpdatePayoutStatus(payout.ID, models.PayoutApproved); err != nil {
		t.Fatalf("UpdatePayoutStatus: %v", err)
	}

	payouts, err := s.GetPayoutRequests(user.ID)
	if err != nil || len(payouts) != 1 {
		t.Fatalf("GetPayoutRequests = %+v, %v", payouts, err)
	}

	if payouts[0].Status != models.PayoutApproved || payouts[0].Amount != 120.50 {
		t.Errorf("unexpected payout: %+v", payouts[0])
	}

	all, err := s.GetAllPayoutRequests()
	if err != nil || len(all) != 1 {
		t.Errorf("GetAllPayoutRequests = %+v, %v", all, err)
	}

	if err := s.UpdatePayoutStatus(9999, models.PayoutPaid); err == nil {
		t.Error("updating a missing payout must fail")
	}
}

func TestSettingsDefaults(t *testing.T) {
	s := testStorage(t)

	user, _ := s.CreateUser("alice", "h", models.RolePartner)

	// Без сохранённой строки возвращаются дефолты
	settings, err := s.GetSettings(user.ID)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}

	if settings.QualificationThreshold != 3 || !settings.NotifyPayouts || !settings.NotifyConnection {
		t.Errorf("unexpected defaults: %+v", settings)
	}

	settings.QualificationThreshold = 5
	settings.NotifyPayouts = false

	if err := s.SaveSettings(settings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	got, err := s.GetSettings(user.ID)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}

	if got.QualificationThreshold != 5 || got.NotifyPayouts || !got.NotifyConnection {
		t.Errorf("settings not persisted: %+v", got)
	}

	// Повторное сохранение обновляет, а не дублирует
	got.QualificationThreshold = 7
	if err := s.SaveSettings(got); err != nil {
		t.Fatalf("SaveSettings upsert: %v", err)
	}

	final, _ := s.GetSettings(user.ID)
	if final.QualificationThreshold != 7 {
		t.Errorf("threshold = %d, want 7", final.QualificationThreshold)
	}
}

func TestSettingsConfiguredDefaultThreshold(t *testing.T) {
	s := testStorageWithThreshold(t, 5)

	user, _ := s.CreateUser("alice", "h", models.RolePartner)

	// Порог из конфигурации действует, пока пользователь не сохранил свой
	settings, err := s.GetSettings(user.ID)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}

	if settings.QualificationThreshold != 5 {
		t.Errorf("default threshold = %d, want 5", settings.QualificationThreshold)
	}

	settings.QualificationThreshold = 2
	if err := s.SaveSettings(settings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	saved, _ := s.GetSettings(user.ID)
	if saved.QualificationThreshold != 2 {
		t.Errorf("saved threshold = %d, want 2", saved.QualificationThreshold)
	}
}

func TestConnectionAlertsEnabled(t *testing.T) {
	s := testStorage(t)

	// Без сохранённых настроек уведомления включены
	if !s.ConnectionAlertsEnabled() {
		t.Error("alerts must be enabled by default")
	}

	alice, _ := s.CreateUser("alice", "h", models.RolePartner)

	settings, _ := s.GetSettings(alice.ID)
	settings.NotifyConnection = false

	if err := s.SaveSettings(settings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	// Единственный пользователь отключил уведомления
	if s.ConnectionAlertsEnabled() {
		t.Error("alerts must be disabled when every user opted out")
	}

	// Второй пользователь с включёнными уведомлениями возвращает их
	bob, _ := s.CreateUser("bob", "h", models.RolePartner)

	bobSettings, _ := s.GetSettings(bob.ID)
	if err := s.SaveSettings(bobSettings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	if !s.ConnectionAlertsEnabled() {
		t.Error("alerts must be enabled while any user keeps them on")
	}
}

func TestActivityLog(t *testing.T) {
	s := testStorage(t)

	user, _ := s.CreateUser("alice", "h", models.RolePartner)

	for i := 0; i < 3; i++ {
		err := s.AddLog(context.Background(), models.ActivityLog{
			UserID:  &user.ID,
			Level:   "info",
			Action:  "test",
			Message: "entry",
		})
		if err != nil {
			t.Fatalf("AddLog: %v", err)
		}
	}

	logs, err := s.GetLogs(user.ID, 2, 0)
	if err != nil {
		t.Fatalf("GetLogs: %v", err)
	}

	if len(logs) != 2 {
		t.Errorf("limit ignored: got %d logs", len(logs))
	}
}

func TestAssets(t *testing.T) {
	s := testStorage(t)

	user, _ := s.CreateUser("alice", "h", models.RolePartner)

	asset := models.Asset{
		ID:     "a-1",
		UserID: user.ID,
		Name:   "Banner 300x250",
		Type:   "banner",
		URL:    "https://cdn.example.com/banner.png",
	}

	if err := s.CreateAsset(asset); err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}

	assets, err := s.GetAssets(user.ID)
	if err != nil || len(assets) != 1 {
		t.Fatalf("GetAssets = %+v, %v", assets, err)
	}

	if assets[0].CampaignID != "" {
		t.Errorf("unassigned campaign must be empty, got %q", assets[0].CampaignID)
	}

	if err := s.DeleteAsset(user.ID, "a-1"); err != nil {
		t.Fatalf("DeleteAsset: %v", err)
	}

	if err := s.DeleteAsset(user.ID, "a-1"); err == nil {
		t.Error("deleting a missing asset must fail")
	}
}
