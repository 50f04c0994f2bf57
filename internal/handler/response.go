package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"fixly-app/marketplace-service/internal/models"
	"fixly-app/marketplace-service/internal/utils"
)

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{"success": true, "message": message, "data": data})
}

// respondError maps domain errors to the HTTP status classes of the API:
// 400 validation, 403 auth, 404 missing, 409 state conflicts, 500 the rest.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrInvalidState), errors.Is(err, models.ErrDuplicate):
		status = http.StatusConflict
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidID), errors.Is(err, models.ErrAlreadyRated):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"success": false, "message": err.Error()})
}

// respondBindError reports a request-body binding failure, spelling out the
// failing fields when the validator produced them.
func respondBindError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	message := "Invalid input"
	if errors.As(err, &validationErrors) {
		message = strings.Join(utils.ParseErrors(err), "; ")
	}
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": message})
}
