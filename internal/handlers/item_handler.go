package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/stridehq/community-engine/internal/models"
	"github.com/stridehq/community-engine/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ItemHandler handles HTTP requests for community items.
type ItemHandler struct {
	Service         *services.ItemService
	ActivityService *services.ActivityService
}

// NewItemHandler creates a new instance of ItemHandler.
func NewItemHandler(service *services.ItemService, activityService *services.ActivityService) *ItemHandler {
	return &ItemHandler{Service: service, ActivityService: activityService}
}

// CreateItemHandler handles POST /communities/{id}/items. The "path" field
// selects the creation mode: suggest, create (default) or copy.
func (h *ItemHandler) CreateItemHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Path              string `json:"path"`
		Type              string `json:"type"`
		ParticipationType string `json:"participation_type"`
		Title             string `json:"title"`
		Description       string `json:"description"`
		Category          string `json:"category"`
		Frequency         string `json:"frequency"`
		SourceID          string `json:"source_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	input := services.ItemInput{
		Type:              req.Type,
		ParticipationType: req.ParticipationType,
		Title:             req.Title,
		Description:       req.Description,
		Category:          req.Category,
		Frequency:         req.Frequency,
	}
	if req.SourceID != "" {
		sourceID, err := primitive.ObjectIDFromHex(req.SourceID)
		if err != nil {
			http.Error(w, "Invalid source ID", http.StatusBadRequest)
			return
		}
		input.SourceID = sourceID
	}

	var item *models.Item
	var err error
	switch req.Path {
	case "suggest":
		item, err = h.Service.SuggestItem(r.Context(), userID, communityID, input)
	case "copy":
		item, err = h.Service.CopyFromPersonal(r.Context(), userID, communityID, input)
	case "", "create":
		item, err = h.Service.CreateOwnedItem(r.Context(), userID, communityID, input)
	default:
		http.Error(w, "Invalid creation path", http.StatusBadRequest)
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}

	_ = h.ActivityService.LogActivity(r.Context(), communityID, userID, models.ActivityItemCreated, item.ID, fmt.Sprintf("Added %s: %s", item.Type, item.Title))

	logrus.WithFields(logrus.Fields{
		"userID": userID.Hex(),
		"itemID": item.ID.Hex(),
	}).Info("Item successfully created")
	respondJSON(w, http.StatusCreated, map[string]interface{}{"item": item})
}

// ListItemsHandler handles GET /communities/{id}/items.
func (h *ItemHandler) ListItemsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}

	items, err := h.Service.ListCommunityItems(r.Context(), communityID, userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// ApproveItemHandler handles PATCH /communities/{id}/items/{itemId}/approve.
func (h *ItemHandler) ApproveItemHandler(w http.ResponseWriter, r *http.Request) {
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
		Approve bool `json:"approve"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	item, err := h.Service.ApproveItem(r.Context(), itemID, userID, req.Approve)
	if err != nil {
		respondError(w, err)
		return
	}

	if req.Approve {
		_ = h.ActivityService.LogActivity(r.Context(), communityID, userID, models.ActivityItemApproved, itemID, fmt.Sprintf("Approved %s: %s", item.Type, item.Title))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"item": item})
}

// RemoveItemHandler handles DELETE /communities/{id}/items/{itemId}.
func (h *ItemHandler) RemoveItemHandler(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Service.RemoveItem(r.Context(), itemID, userID); err != nil {
		respondError(w, err)
		return
	}

	_ = h.ActivityService.LogActivity(r.Context(), communityID, userID, models.ActivityItemRemoved, itemID, "An item was removed")
	w.WriteHeader(http.StatusNoContent)
}
