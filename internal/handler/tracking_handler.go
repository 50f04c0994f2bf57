package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fixly-app/marketplace-service/internal/models"
	"fixly-app/marketplace-service/internal/services"
)

type TrackingHandler struct {
	service services.TrackingService
}

func NewTrackingHandler(service services.TrackingService) *TrackingHandler {
	return &TrackingHandler{service: service}
}

func (h *TrackingHandler) Open(c *gin.Context) {
	userID := c.GetString("userID")

	var body struct {
		ServiceRequestID string `json:"service_request_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindError(c, err)
		return
	}

	tracking, err := h.service.Open(c.Request.Context(), userID, body.ServiceRequestID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Tracking session opened", tracking)
}

func (h *TrackingHandler) UpdateLocation(c *gin.Context) {
	userID := c.GetString("userID")

	var input models.TrackingLocationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	tracking, err := h.service.UpdateLocation(c.Request.Context(), c.Param("id"), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Location updated", tracking)
}

func (h *TrackingHandler) UpdateStatus(c *gin.Context) {
	userID := c.GetString("userID")

	var input models.TrackingStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	tracking, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), userID, input.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Tracking status updated", tracking)
}

func (h *TrackingHandler) End(c *gin.Context) {
	userID := c.GetString("userID")

	tracking, err := h.service.End(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Tracking session ended", tracking)
}

func (h *TrackingHandler) GetByRequest(c *gin.Context) {
	userID := c.GetString("userID")

	tracking, err := h.service.GetByRequest(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Tracking session fetched", tracking)
}

func (h *TrackingHandler) History(c *gin.Context) {
	userID := c.GetString("userID")

	sessions, err := h.service.History(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Tracking history fetched", sessions)
}

func (h *TrackingHandler) ListLive(c *gin.Context) {
	sessions, err := h.service.ListLive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Live tracking sessions fetched", sessions)
}
