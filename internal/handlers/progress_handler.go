package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/stridehq/community-engine/internal/models"
	"github.com/stridehq/community-engine/internal/services"
)

// ProgressHandler handles HTTP requests for item participation and progress.
type ProgressHandler struct {
	Service         *services.ProgressService
	ActivityService *services.ActivityService
}

// NewProgressHandler creates a new instance of ProgressHandler.
func NewProgressHandler(service *services.ProgressService, activityService *services.ActivityService) *ProgressHandler {
	return &ProgressHandler{Service: service, ActivityService: activityService}
}

// JoinItemHandler handles POST /communities/{id}/items/{itemId}/join.
func (h *ProgressHandler) JoinItemHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathObjectID(w, r, "itemId")
	if !ok {
		return
	}

	participation, err := h.Service.JoinItem(r.Context(), userID, communityID, itemID)
	if err != nil {
		respondError(w, err)
		return
	}

	_ = h.ActivityService.LogActivity(r.Context(), communityID, userID, models.ActivityItemJoined, itemID, "A member joined an item")
	respondJSON(w, http.StatusOK, map[string]interface{}{"participation": participation})
}

// LeaveItemHandler handles POST /communities/{id}/items/{itemId}/leave.
func (h *ProgressHandler) LeaveItemHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathObjectID(w, r, "itemId")
	if !ok {
		return
	}

	if err := h.Service.LeaveItem(r.Context(), userID, communityID, itemID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetItemProgressHandler handles GET /communities/{id}/items/{itemId}/progress.
func (h *ProgressHandler) GetItemProgressHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathObjectID(w, r, "itemId")
	if !ok {
		return
	}

	progress, err := h.Service.GetItemProgress(r.Context(), userID, communityID, itemID)
	if err != nil {
		respondError(w, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"userID": userID.Hex(),
		"itemID": itemID.Hex(),
	}).Info("Item progress computed")
	respondJSON(w, http.StatusOK, progress)
}

// UpdateContributionHandler handles PATCH /communities/{id}/items/{itemId}/contribution.
func (h *ProgressHandler) UpdateContributionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathObjectID(w, r, "itemId")
	if !ok {
		return
	}

	var req struct {
		Amount int `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	participation, err := h.Service.UpdateContribution(r.Context(), userID, communityID, itemID, req.Amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"participation": participation})
}

// MyJoinedItemsHandler handles GET /me/items.
func (h *ProgressHandler) MyJoinedItemsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	feed, err := h.Service.ListMyJoinedItems(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": feed})
}
