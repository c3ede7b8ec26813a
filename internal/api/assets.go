package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	apimw "ib_dashboard/internal/api/middleware"
	"ib_dashboard/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// HandleGetAssets возвращает маркетинговые материалы пользователя
func (h *Handler) HandleGetAssets(w http.ResponseWriter, r *http.Request) {
	userID, _ := apimw.GetUserID(r.Context())

	assets, err := h.storage.GetAssets(userID)
	if err != nil {
		h.logger.Error("Failed to get assets", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Internal error")

		return
	}

	if assets == nil {
		assets = []models.Asset{}
	}

	h.respondJSON(w, http.StatusOK, assets)
}

type AssetRequest struct {
	CampaignID string `json:"campaign_id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	URL        string `json:"url"`
}

// HandleCreateAsset создает маркетинговый материал
func (h *Handler) HandleCreateAsset(w http.ResponseWriter, r *http.Request) {
	userID, _ := apimw.GetUserID(r.Context())

	var req AssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.URL = strings.TrimSpace(req.URL)

	if req.Name == "" || req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "Name and URL are required")
		return
	}

	switch req.Type {
	case "banner", "landing", "link":
	default:
		h.respondError(w, http.StatusBadRequest, "Type must be banner, landing or link")
		return
	}

	asset := models.Asset{
		ID:         uuid.NewString(),
		UserID:     userID,
		CampaignID: req.CampaignID,
		Name:       req.Name,
		Type:       req.Type,
		URL:        req.URL,
		CreatedAt:  time.Now(),
	}

	if err := h.storage.CreateAsset(asset); err != nil {
		h.logger.Error("Failed to create asset", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Internal error")

		return
	}

	h.respondJSON(w, http.StatusCreated, asset)
}

// HandleDeleteAsset удаляет материал
func (h *Handler) HandleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	userID, _ := apimw.GetUserID(r.Context())
	id := mux.Vars(r)["id"]

	if err := h.storage.DeleteAsset(userID, id); err != nil {
		h.respondError(w, http.StatusNotFound, "Asset not found")
		return
	}

	h.respondSuccess(w, "Asset deleted", nil)
}
