package api

import (
	"net/http"

	apimw "ib_dashboard/internal/api/middleware"
	"ib_dashboard/internal/middleware"

	"github.com/gorilla/mux"
)

// SetupRouter настраивает роутинг для API
func (h *Handler) SetupRouter(webDir string) *mux.Router {
	r := mux.NewRouter()

	// Применяем CORS middleware ко всем маршрутам
	r.Use(middleware.CORS)

	// Публичные маршруты (не требуют аутентификации)
	r.HandleFunc("/api/auth/login", h.HandleLogin).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/auth/register", h.HandleRegister).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/auth/otp/send", h.HandleSendOTP).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/auth/otp/verify", h.HandleVerifyOTP).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/auth/password/reset", h.HandleResetPassword).Methods("POST", "OPTIONS")
	r.HandleFunc("/health", h.HandleHealth).Methods("GET")

	// Защищенные маршруты (требуют аутентификации)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(apimw.AuthMiddleware(h.authService))

	// Connection status
	api.HandleFunc("/status", h.HandleStatus).Methods("GET")

	// Clients
	api.HandleFunc("/clients", h.HandleGetClients).Methods("GET")
	api.HandleFunc("/clients/{id:[0-9]+}", h.HandleGetClient).Methods("GET")

	// Reports
	api.HandleFunc("/reports", h.HandleGetReport).Methods("GET")

	// Payouts
	api.HandleFunc("/payouts", h.HandleGetPayouts).Methods("GET")
	api.HandleFunc("/payouts", h.HandleCreatePayout).Methods("POST")

	// Network (реферальное дерево)
	api.HandleFunc("/network", h.HandleGetNetwork).Methods("GET")

	// Campaigns
	api.HandleFunc("/campaigns", h.HandleGetCampaigns).Methods("GET")
	api.HandleFunc("/campaigns", h.HandleCreateCampaign).Methods("POST")
	api.HandleFunc("/campaigns/{id}", h.HandleUpdateCampaign).Methods("PUT")
	api.HandleFunc("/campaigns/{id}", h.HandleDeleteCampaign).Methods("DELETE")
	api.HandleFunc("/campaigns/{id}/stats", h.HandleGetCampaignStats).Methods("GET")

	// Assets
	api.HandleFunc("/assets", h.HandleGetAssets).Methods("GET")
	api.HandleFunc("/assets", h.HandleCreateAsset).Methods("POST")
	api.HandleFunc("/assets/{id}", h.HandleDeleteAsset).Methods("DELETE")

	// Settings
	api.HandleFunc("/settings", h.HandleGetSettings).Methods("GET")
	api.HandleFunc("/settings", h.HandleSaveSettings).Methods("PUT")

	// 2FA (проксируется в backend-коллаборатор)
	api.HandleFunc("/2fa/setup", h.HandleSetup2FA).Methods("POST")
	api.HandleFunc("/2fa/verify", h.HandleVerify2FA).Methods("POST")
	api.HandleFunc("/2fa/check", h.HandleCheck2FA).Methods("GET")
	api.HandleFunc("/2fa/disable", h.HandleDisable2FA).Methods("POST")

	// Admin
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(apimw.AdminOnly)
	admin.HandleFunc("/logs", h.HandleGetLogs).Methods("GET")
	admin.HandleFunc("/payouts", h.HandleGetAllPayouts).Methods("GET")
	admin.HandleFunc("/payouts/{id:[0-9]+}/status", h.HandleUpdatePayoutStatus).Methods("PUT")

	// Статические файлы (должны быть в конце)
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(webDir)))

	return r
}

// HandleHealth возвращает статус здоровья сервиса
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondSuccess(w, "OK", map[string]string{
		"status": "healthy",
	})
}
