package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fixly-app/marketplace-service/internal/models"
	"fixly-app/marketplace-service/internal/services"
)

type WorkerHandler struct {
	service services.WorkerService
}

func NewWorkerHandler(service services.WorkerService) *WorkerHandler {
	return &WorkerHandler{service: service}
}

func (h *WorkerHandler) Register(c *gin.Context) {
	userID := c.GetString("userID")

	var input models.RegisterWorkerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	worker, err := h.service.Register(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Worker profile created", worker)
}

func (h *WorkerHandler) GetMe(c *gin.Context) {
	userID := c.GetString("userID")

	worker, err := h.service.GetByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Worker profile fetched", worker)
}

func (h *WorkerHandler) GetByID(c *gin.Context) {
	worker, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Worker profile fetched", worker)
}

func (h *WorkerHandler) UpdateProfile(c *gin.Context) {
	userID := c.GetString("userID")

	var input models.UpdateWorkerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	worker, err := h.service.UpdateProfile(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Worker profile updated", worker)
}

func (h *WorkerHandler) UpdateLocation(c *gin.Context) {
	userID := c.GetString("userID")

	var input models.WorkerLocationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	worker, err := h.service.UpdateLocation(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Location updated", worker)
}

func (h *WorkerHandler) SetAvailability(c *gin.Context) {
	userID := c.GetString("userID")

	var body struct {
		IsAvailable *bool `json:"is_available" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindError(c, err)
		return
	}

	worker, err := h.service.SetAvailability(c.Request.Context(), userID, *body.IsAvailable)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Availability updated", worker)
}

func (h *WorkerHandler) Search(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "lat and lng query parameters are required"})
		return
	}

	radius := 0.0
	if radiusStr := c.Query("radius"); radiusStr != "" {
		parsed, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid radius"})
			return
		}
		radius = parsed
	}

	origin := models.GeoPoint{Longitude: lng, Latitude: lat}
	profession := models.ServiceType(c.Query("profession"))

	workers, err := h.service.SearchNearby(c.Request.Context(), origin, radius, profession)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Workers fetched", workers)
}
