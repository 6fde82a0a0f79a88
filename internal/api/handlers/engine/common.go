package engine

import (
	"errors"
	"net/http"

	"pantry-chef/internal/core/detection"
	"pantry-chef/internal/core/recommend"
	"pantry-chef/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// Handler bundles the engine services behind the HTTP API.
type Handler struct {
	resolver *detection.Resolver
	svc      *recommend.Service
}

// NewHandler creates the engine API handler.
func NewHandler(resolver *detection.Resolver, svc *recommend.Service) *Handler {
	return &Handler{
		resolver: resolver,
		svc:      svc,
	}
}

// respondError maps an error onto its HTTP status and error code.
func respondError(c *gin.Context, err error) {
	var custom *common.CustomError
	if errors.As(err, &custom) {
		c.JSON(custom.Status, common.ErrorResponse{
			Code:    custom.Code,
			Message: custom.Message,
		})
		return
	}
	if common.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusInternalServerError, common.ErrorResponse{
		Code:    common.ErrCodeInternalError,
		Message: "internal server error",
	})
}

// userID pulls the user identifier from the query string or request body
// field. Authentication is handled upstream; the engine only needs a
// stable identifier to partition pantry state.
func userID(c *gin.Context) (string, bool) {
	id := c.Query("user_id")
	if id == "" {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: "user_id is required",
		})
		return "", false
	}
	return id, true
}
