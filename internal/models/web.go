package models

import "time"

// User представляет пользователя дашборда (партнёр или админ)
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"` // partner | admin
	CreatedAt    time.Time `json:"created_at"`
}

// Роли пользователей дашборда
const (
	RolePartner = "partner"
	RoleAdmin   = "admin"
)

// Campaign представляет маркетинговую кампанию партнёра
type Campaign struct {
	ID          string    `json:"id"` // uuid
	UserID      int       `json:"user_id"`
	Name        string    `json:"name"`
	ReferrerTag string    `json:"referrer_tag"` // метка, по которой фильтруются клиенты
	Cost        float64   `json:"cost"`
	CreatedAt   time.Time `json:"created_at"`
}

// CampaignStats представляет агрегированные показатели кампании
type CampaignStats struct {
	CampaignID    string  `json:"campaign_id"`
	Signups       int     `json:"signups"`
	ActiveClients int     `json:"active_clients"`
	TotalRevenue  float64 `json:"total_revenue"`
	Cost          float64 `json:"cost"`
}

// Asset представляет маркетинговый материал (баннер, лендинг, ссылка)
type Asset struct {
	ID         string    `json:"id"` // uuid
	UserID     int       `json:"user_id"`
	CampaignID string    `json:"campaign_id,omitempty"`
	Name       string    `json:"name"`
	Type       string    `json:"type"` // banner | landing | link
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"created_at"`
}

// Статусы заявок на выплату
const (
	PayoutPending  = "pending"
	PayoutApproved = "approved"
	PayoutPaid     = "paid"
	PayoutRejected = "rejected"
)

// PayoutRequest представляет заявку партнёра на выплату комиссии
type PayoutRequest struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Settings представляет настройки партнёра
type Settings struct {
	UserID                 int  `json:"user_id"`
	QualificationThreshold int  `json:"qualification_threshold"`
	NotifyPayouts          bool `json:"notify_payouts"`
	NotifyConnection       bool `json:"notify_connection"`
}

// ActivityLog представляет запись журнала действий
type ActivityLog struct {
	ID        int       `json:"id"`
	UserID    *int      `json:"user_id,omitempty"`
	Level     string    `json:"level"`
	Action    string    `json:"action"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
