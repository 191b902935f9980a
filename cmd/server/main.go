package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/stridehq/community-engine/internal/config"
	"github.com/stridehq/community-engine/internal/database"
	"github.com/stridehq/community-engine/internal/handlers"
	"github.com/stridehq/community-engine/internal/repository"
	"github.com/stridehq/community-engine/internal/services"
	"github.com/stridehq/community-engine/pkg/logger"
	"github.com/stridehq/community-engine/pkg/middleware"
)

func main() {
	cfg := config.LoadConfig()

	logger.InitLogger()
	logger.Log.Info("Logger initialized")

	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}

	// --- Repositories ---
	userRepo := repository.NewUserRepository(db)
	communityRepo := repository.NewCommunityRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	itemRepo := repository.NewItemRepository(db)
	participationRepo := repository.NewParticipationRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	habitRepo := repository.NewHabitRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// --- Services ---
	adapter := services.NewSourceRecordAdapter(goalRepo, habitRepo)
	userService := services.NewUserService(userRepo, cfg.JWTSecret)
	communityService := services.NewCommunityService(communityRepo, membershipRepo, participationRepo, itemRepo, userRepo)
	itemService := services.NewItemService(itemRepo, participationRepo, communityRepo, membershipRepo, adapter)
	progressService := services.NewProgressService(itemRepo, participationRepo, communityRepo, membershipRepo, adapter)
	announcementService := services.NewAnnouncementService(announcementRepo, communityRepo, membershipRepo)
	activityService := services.NewActivityService(activityRepo, communityRepo)

	// --- Handlers ---
	userHandler := handlers.NewUserHandler(userService)
	communityHandler := handlers.NewCommunityHandler(communityService, activityService)
	itemHandler := handlers.NewItemHandler(itemService, activityService)
	progressHandler := handlers.NewProgressHandler(progressService, activityService)
	announcementHandler := handlers.NewAnnouncementHandler(announcementService)

	router := mux.NewRouter()

	// Public user routes
	router.HandleFunc("/users/register", userHandler.RegisterUserHandler).Methods("POST")
	router.HandleFunc("/users/login", userHandler.LoginUserHandler).Methods("POST")

	protectedUserRoutes := router.PathPrefix("/users").Subrouter()
	protectedUserRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedUserRoutes.HandleFunc("/{id}", userHandler.GetUserHandler).Methods("GET")

	// Community routes
	communityRoutes := router.PathPrefix("/communities").Subrouter()
	communityRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	communityRoutes.HandleFunc("", communityHandler.CreateCommunityHandler).Methods("POST")
	communityRoutes.HandleFunc("/{id}", communityHandler.GetCommunityHandler).Methods("GET")
	communityRoutes.HandleFunc("/{id}/settings", communityHandler.UpdateSettingsHandler).Methods("PATCH")
	communityRoutes.HandleFunc("/{id}/images", communityHandler.UpdateImagesHandler).Methods("PATCH")
	communityRoutes.HandleFunc("/{id}/stats", communityHandler.GetStatsHandler).Methods("GET")
	communityRoutes.HandleFunc("/{id}/activity", communityHandler.GetActivityHandler).Methods("GET")
	communityRoutes.HandleFunc("/{id}/join", communityHandler.JoinCommunityHandler).Methods("POST")
	communityRoutes.HandleFunc("/{id}/leave", communityHandler.LeaveCommunityHandler).Methods("POST")
	communityRoutes.HandleFunc("/{id}/members", communityHandler.ListMembersHandler).Methods("GET")
	communityRoutes.HandleFunc("/{id}/members/pending", communityHandler.ListPendingMembersHandler).Methods("GET")
	communityRoutes.HandleFunc("/{id}/members/{userId}/decide", communityHandler.DecideMembershipHandler).Methods("POST")

	// Item routes
	communityRoutes.HandleFunc("/{id}/items", itemHandler.CreateItemHandler).Methods("POST")
	communityRoutes.HandleFunc("/{id}/items", itemHandler.ListItemsHandler).Methods("GET")
	communityRoutes.HandleFunc("/{id}/items/{itemId}/approve", itemHandler.ApproveItemHandler).Methods("PATCH")
	communityRoutes.HandleFunc("/{id}/items/{itemId}", itemHandler.RemoveItemHandler).Methods("DELETE")

	// Participation & progress routes
	communityRoutes.HandleFunc("/{id}/items/{itemId}/join", progressHandler.JoinItemHandler).Methods("POST")
	communityRoutes.HandleFunc("/{id}/items/{itemId}/leave", progressHandler.LeaveItemHandler).Methods("POST")
	communityRoutes.HandleFunc("/{id}/items/{itemId}/progress", progressHandler.GetItemProgressHandler).Methods("GET")
	communityRoutes.HandleFunc("/{id}/items/{itemId}/contribution", progressHandler.UpdateContributionHandler).Methods("PATCH")

	// Announcement routes
	communityRoutes.HandleFunc("/{id}/announcements", announcementHandler.CreateAnnouncementHandler).Methods("POST")
	communityRoutes.HandleFunc("/{id}/announcements", announcementHandler.ListAnnouncementsHandler).Methods("GET")
	communityRoutes.HandleFunc("/{id}/announcements/{announcementId}/pin", announcementHandler.PinAnnouncementHandler).Methods("PATCH")
	communityRoutes.HandleFunc("/{id}/announcements/{announcementId}", announcementHandler.DeleteAnnouncementHandler).Methods("DELETE")

	// Caller-scoped routes
	meRoutes := router.PathPrefix("/me").Subrouter()
	meRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	meRoutes.HandleFunc("/items", progressHandler.MyJoinedItemsHandler).Methods("GET")
	meRoutes.HandleFunc("/community-counts", communityHandler.CommunityCountsHandler).Methods("GET")

	router.Use(middleware.LoggingMiddleware)

	port := cfg.Port
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	fmt.Printf("Server running on port %s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}
