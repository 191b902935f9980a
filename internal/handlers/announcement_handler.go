package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/stridehq/community-engine/internal/services"
)

// AnnouncementHandler handles HTTP requests for community announcements.
type AnnouncementHandler struct {
	Service *services.AnnouncementService
}

// NewAnnouncementHandler creates a new instance of AnnouncementHandler.
func NewAnnouncementHandler(service *services.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{Service: service}
}

// CreateAnnouncementHandler handles POST /communities/{id}/announcements.
func (h *AnnouncementHandler) CreateAnnouncementHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Title    string `json:"title"`
		Body     string `json:"body"`
		IsPinned bool   `json:"is_pinned"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	announcement, err := h.Service.CreateAnnouncement(r.Context(), userID, communityID, req.Title, req.Body, req.IsPinned)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"announcement": announcement})
}

// ListAnnouncementsHandler handles GET /communities/{id}/announcements.
func (h *AnnouncementHandler) ListAnnouncementsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}

	announcements, err := h.Service.ListAnnouncements(r.Context(), userID, communityID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"announcements": announcements})
}

// PinAnnouncementHandler handles PATCH /communities/{id}/announcements/{announcementId}/pin.
func (h *AnnouncementHandler) PinAnnouncementHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}
	announcementID, ok := pathObjectID(w, r, "announcementId")
	if !ok {
		return
	}

	var req struct {
		Pinned bool `json:"pinned"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.Service.SetPinned(r.Context(), userID, communityID, announcementID, req.Pinned); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DeleteAnnouncementHandler handles DELETE /communities/{id}/announcements/{announcementId}.
func (h *AnnouncementHandler) DeleteAnnouncementHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}
	announcementID, ok := pathObjectID(w, r, "announcementId")
	if !ok {
		return
	}

	if err := h.Service.DeleteAnnouncement(r.Context(), userID, communityID, announcementID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
