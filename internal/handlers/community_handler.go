package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stridehq/community-engine/internal/models"
	"github.com/stridehq/community-engine/internal/services"
	"github.com/stridehq/community-engine/pkg/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommunityHandler handles HTTP requests for communities and memberships.
type CommunityHandler struct {
	Service         *services.CommunityService
	ActivityService *services.ActivityService
}

// NewCommunityHandler creates a new instance of CommunityHandler.
func NewCommunityHandler(service *services.CommunityService, activityService *services.ActivityService) *CommunityHandler {
	return &CommunityHandler{Service: service, ActivityService: activityService}
}

// callerID extracts the authenticated user's ObjectID from the request
// context. Writes the error response itself on failure.
func callerID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		logrus.Warn("Unauthorized request reached handler")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		logrus.WithError(err).Error("Failed to convert user ID")
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return primitive.NilObjectID, false
	}
	return userID, true
}

func pathObjectID(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)[name])
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid %s", name), http.StatusBadRequest)
		return primitive.NilObjectID, false
	}
	return id, true
}

// CreateCommunityHandler handles POST /communities.
func (h *CommunityHandler) CreateCommunityHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name        string                   `json:"name"`
		Description string                   `json:"description"`
		Visibility  string                   `json:"visibility"`
		Interests   []string                 `json:"interests"`
		MemberLimit int                      `json:"member_limit"`
		Settings    models.CommunitySettings `json:"settings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	community := &models.Community{
		Name:        req.Name,
		Description: req.Description,
		Visibility:  req.Visibility,
		Interests:   req.Interests,
		Settings:    req.Settings,
	}
	if req.MemberLimit > 0 {
		community.Settings.MemberLimit = req.MemberLimit
	}

	created, err := h.Service.CreateCommunity(r.Context(), userID, community)
	if err != nil {
		respondError(w, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"userID":      userID.Hex(),
		"communityID": created.ID.Hex(),
	}).Info("Community successfully created")
	respondJSON(w, http.StatusCreated, map[string]interface{}{"community": created})
}

// GetCommunityHandler handles GET /communities/{id}.
func (h *CommunityHandler) GetCommunityHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}

	community, err := h.Service.GetCommunity(r.Context(), communityID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"community": community})
}

// JoinCommunityHandler handles POST /communities/{id}/join.
func (h *CommunityHandler) JoinCommunityHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}

	membership, err := h.Service.Join(r.Context(), userID, communityID)
	if err != nil {
		respondError(w, err)
		return
	}

	if membership.Status == models.MembershipActive {
		_ = h.ActivityService.LogActivity(r.Context(), communityID, userID, models.ActivityMemberJoined, membership.ID, "A new member joined")
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"membership": membership})
}

// LeaveCommunityHandler handles POST /communities/{id}/leave.
func (h *CommunityHandler) LeaveCommunityHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Service.Leave(r.Context(), userID, communityID); err != nil {
		respondError(w, err)
		return
	}
	_ = h.ActivityService.LogActivity(r.Context(), communityID, userID, models.ActivityMemberLeft, userID, "A member left")
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DecideMembershipHandler handles POST /communities/{id}/members/{userId}/decide.
func (h *CommunityHandler) DecideMembershipHandler(w http.ResponseWriter, r *http.Request) {
	approverID, ok := callerID(w, r)
	if !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}
	targetID, ok := pathObjectID(w, r, "userId")
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

	membership, err := h.Service.DecideMembership(r.Context(), communityID, targetID, approverID, req.Approve)
	if err != nil {
		respondError(w, err)
		return
	}

	if req.Approve {
		_ = h.ActivityService.LogActivity(r.Context(), communityID, approverID, models.ActivityMemberApproved, targetID, "A membership request was approved")
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"membership": membership})
}

// ListMembersHandler handles GET /communities/{id}/members.
func (h *CommunityHandler) ListMembersHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}

	members, err := h.Service.ListMembers(r.Context(), communityID, userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"members": members})
}

// ListPendingMembersHandler handles GET /communities/{id}/members/pending.
func (h *CommunityHandler) ListPendingMembersHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}

	pending, err := h.Service.ListPendingMembers(r.Context(), communityID, userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"pending": pending})
}

// UpdateSettingsHandler handles PATCH /communities/{id}/settings.
func (h *CommunityHandler) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}

	var settings models.CommunitySettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	community, err := h.Service.UpdateSettings(r.Context(), communityID, userID, settings)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"community": community})
}

// UpdateImagesHandler handles PATCH /communities/{id}/images.
func (h *CommunityHandler) UpdateImagesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		ImageURL  string `json:"image_url"`
		BannerURL string `json:"banner_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.Service.UpdateImages(r.Context(), communityID, userID, req.ImageURL, req.BannerURL); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetStatsHandler handles GET /communities/{id}/stats.
func (h *CommunityHandler) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}

	stats, err := h.Service.GetStats(r.Context(), communityID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

// GetActivityHandler handles GET /communities/{id}/activity.
func (h *CommunityHandler) GetActivityHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	communityID, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}

	activity, err := h.ActivityService.GetRecentActivity(r.Context(), communityID, 20)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"activity": activity})
}

// CommunityCountsHandler handles GET /me/community-counts, the counting
// primitives consumed by the external capability gate.
func (h *CommunityHandler) CommunityCountsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	owned, err := h.Service.CountOwnedActive(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	joined, err := h.Service.CountJoinedActive(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"owned_active": owned, "joined_active": joined})
}
