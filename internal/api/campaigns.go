package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	apimw "ib_dashboard/internal/api/middleware"
	"ib_dashboard/internal/aggregate"
	"ib_dashboard/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// HandleGetCampaigns возвращает кампании пользователя
func (h *Handler) HandleGetCampaigns(w http.ResponseWriter, r *http.Request) {
	userID, _ := apimw.GetUserID(r.Context())

	campaigns, err := h.storage.GetCampaigns(userID)
	if err != nil {
		h.logger.Error("Failed to get campaigns", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Internal error")

		return
	}

	if campaigns == nil {
		campaigns = []models.Campaign{}
	}

	h.respondJSON(w, http.StatusOK, campaigns)
}

type CampaignRequest struct {
	Name        string  `json:"name"`
	ReferrerTag string  `json:"referrer_tag"`
	Cost        float64 `json:"cost"`
}

// HandleCreateCampaign создает кампанию
func (h *Handler) HandleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	userID, _ := apimw.GetUserID(r.Context())

	var req CampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.ReferrerTag = strings.TrimSpace(req.ReferrerTag)

	if req.Name == "" || req.ReferrerTag == "" {
		h.respondError(w, http.StatusBadRequest, "Name and referrer tag are required")
		return
	}

	campaign := models.Campaign{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        req.Name,
		ReferrerTag: req.ReferrerTag,
		Cost:        req.Cost,
		CreatedAt:   time.Now(),
	}

	if err := h.storage.CreateCampaign(campaign); err != nil {
		h.respondError(w, http.StatusConflict, "Campaign with this name already exists")
		return
	}

	h.respondJSON(w, http.StatusCreated, campaign)
}

// HandleUpdateCampaign обновляет кампанию
func (h *Handler) HandleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	userID, _ := apimw.GetUserID(r.Context())
	id := mux.Vars(r)["id"]

	var req CampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	campaign := models.Campaign{
		ID:          id,
		UserID:      userID,
		Name:        strings.TrimSpace(req.Name),
		ReferrerTag: strings.TrimSpace(req.ReferrerTag),
		Cost:        req.Cost,
	}

	if campaign.Name == "" || campaign.ReferrerTag == "" {
		h.respondError(w, http.StatusBadRequest, "Name and referrer tag are required")
		return
	}

	if err := h.storage.UpdateCampaign(campaign); err != nil {
		h.respondError(w, http.StatusNotFound, "Campaign not found")
		return
	}

	h.respondJSON(w, http.StatusOK, campaign)
}

// HandleDeleteCampaign удаляет кампанию
func (h *Handler) HandleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	userID, _ := apimw.GetUserID(r.Context())
	id := mux.Vars(r)["id"]

	if err := h.storage.DeleteCampaign(userID, id); err != nil {
		h.respondError(w, http.StatusNotFound, "Campaign not found")
		return
	}

	h.respondSuccess(w, "Campaign deleted", nil)
}

// HandleGetCampaignStats считает показатели кампании за период
func (h *Handler) HandleGetCampaignStats(w http.ResponseWriter, r *http.Request) {
	userID, _ := apimw.GetUserID(r.Context())
	id := mux.Vars(r)["id"]

	window, ok := h.parseWindow(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid window")
		return
	}

	campaign, err := h.storage.GetCampaign(userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.respondError(w, http.StatusNotFound, "Campaign not found")
			return
		}

		h.logger.Error("Failed to get campaign", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Internal error")

		return
	}

	stats := aggregate.CampaignStats(*campaign, h.data.Clients(), h.data.Trades(), window, time.Now(), h.rates)

	h.respondJSON(w, http.StatusOK, stats)
}
