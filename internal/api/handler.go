package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"ib_dashboard/internal/aggregate"
	"ib_dashboard/internal/auth"
	"ib_dashboard/internal/backend"
	"ib_dashboard/internal/notify"
	"ib_dashboard/internal/platform"
	"ib_dashboard/internal/storage"
)

// Handler обрабатывает API запросы дашборда
type Handler struct {
	storage     *storage.Storage
	authService *auth.Service
	platform    *platform.SessionManager
	data        *DataService
	backend     *backend.Client
	notifier    *notify.Notifier
	rates       aggregate.RateTable
	logger      *slog.Logger
}

func New(
	storage *storage.Storage,
	authService *auth.Service,
	pm *platform.SessionManager,
	data *DataService,
	backendClient *backend.Client,
	notifier *notify.Notifier,
	rates aggregate.RateTable,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		storage:     storage,
		authService: authService,
		platform:    pm,
		data:        data,
		backend:     backendClient,
		notifier:    notifier,
		rates:       rates,
		logger:      logger,
	}
}

// Helper функции для JSON ответов

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) respondError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, ErrorResponse{Error: message})
}

func (h *Handler) respondSuccess(w http.ResponseWriter, message string, data any) {
	h.respondJSON(w, http.StatusOK, SuccessResponse{
		Message: message,
		Data:    data,
	})
}

// parseWindow разбирает фильтр периода из query-параметра
func (h *Handler) parseWindow(r *http.Request) (aggregate.Window, bool) {
	return aggregate.ParseWindow(r.URL.Query().Get("window"))
}
