package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"hydrateMeAPI/middleware"
	"hydrateMeAPI/services"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
	}
}

type registerDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Token == "" {
		respondWithError(w, http.StatusBadRequest, "token is required")
		return
	}
	if req.Platform == "" {
		req.Platform = "android"
	}

	h.notifications.RegisterDevice(services.DeviceToken{
		Token:    req.Token,
		Platform: req.Platform,
	})
	if clerkID, ok := middleware.GetClerkID(r.Context()); ok {
		log.Printf("Device registered for user %s (%s)", clerkID, req.Platform)
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}
