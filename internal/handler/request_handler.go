package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fixly-app/marketplace-service/internal/models"
	"fixly-app/marketplace-service/internal/services"
)

type RequestHandler struct {
	service services.RequestService
}

func NewRequestHandler(service services.RequestService) *RequestHandler {
	return &RequestHandler{service: service}
}

func (h *RequestHandler) Create(c *gin.Context) {
	userID := c.GetString("userID")

	var input models.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	request, err := h.service.CreateRequest(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Service request created", request)
}

// GetMine lists the caller's own requests: the ones a customer created, or
// the ones assigned to a worker.
func (h *RequestHandler) GetMine(c *gin.Context) {
	userID := c.GetString("userID")

	var (
		requests []models.ServiceRequest
		err      error
	)
	if c.GetString("role") == "worker" {
		requests, err = h.service.ListByWorker(c.Request.Context(), userID)
	} else {
		requests, err = h.service.ListByCustomer(c.Request.Context(), userID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Service requests fetched", requests)
}

func (h *RequestHandler) GetByID(c *gin.Context) {
	userID := c.GetString("userID")

	request, err := h.service.GetForActor(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Service request fetched", request)
}

func (h *RequestHandler) GetNearby(c *gin.Context) {
	userID := c.GetString("userID")

	requests, err := h.service.ListNearbyPending(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Nearby requests fetched", requests)
}

func (h *RequestHandler) Accept(c *gin.Context) {
	userID := c.GetString("userID")

	request, err := h.service.Accept(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Service request accepted", request)
}

func (h *RequestHandler) Terminate(c *gin.Context) {
	userID := c.GetString("userID")

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)

	request, err := h.service.Terminate(c.Request.Context(), c.Param("id"), userID, body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Service request closed", request)
}

func (h *RequestHandler) Start(c *gin.Context) {
	userID := c.GetString("userID")

	request, tracking, err := h.service.Start(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Work started", gin.H{
		"request":  request,
		"tracking": tracking,
	})
}

func (h *RequestHandler) Complete(c *gin.Context) {
	userID := c.GetString("userID")

	var body struct {
		ActualCost *float64 `json:"actual_cost"`
	}
	_ = c.ShouldBindJSON(&body)

	request, err := h.service.Complete(c.Request.Context(), c.Param("id"), userID, body.ActualCost)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Work completed", request)
}

func (h *RequestHandler) Rate(c *gin.Context) {
	userID := c.GetString("userID")

	var input models.RateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	request, err := h.service.Rate(c.Request.Context(), c.Param("id"), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Rating recorded", request)
}
