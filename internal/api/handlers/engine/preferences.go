package engine

import (
	"net/http"

	"pantry-chef/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// preferencesRequest is the full preference record. Updates replace the
// whole record; there is no partial patch.
type preferencesRequest struct {
	DietaryRestrictions []string `json:"dietary_restrictions"`
	PreferredCuisines   []string `json:"preferred_cuisines"`
	MaxCookTime         int      `json:"max_cook_time"`
	SkillLevel          string   `json:"skill_level"`
	Allergens           []string `json:"allergens"`
}

// HandleGetPreferences returns the user's preference record.
func (h *Handler) HandleGetPreferences(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	prefs, err := h.svc.Preferences(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if prefs == nil {
		c.JSON(http.StatusNotFound, common.ErrorResponse{
			Code:    common.ErrCodeNotFound,
			Message: "no preferences set",
		})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// HandlePutPreferences replaces the user's preference record.
func (h *Handler) HandlePutPreferences(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}
	if req.MaxCookTime < 0 {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: "max_cook_time must be non-negative",
		})
		return
	}

	prefs := common.UserPreference{
		UserID:              id,
		DietaryRestrictions: req.DietaryRestrictions,
		PreferredCuisines:   req.PreferredCuisines,
		MaxCookTime:         req.MaxCookTime,
		SkillLevel:          req.SkillLevel,
		Allergens:           req.Allergens,
	}
	if err := h.svc.SavePreferences(c.Request.Context(), &prefs); err != nil {
		respondError(c, err)
		return
	}

	common.LogInfo("preferences replaced",
		zap.String("user_id", id),
		zap.Int("restrictions", len(prefs.DietaryRestrictions)),
		zap.Int("cuisines", len(prefs.PreferredCuisines)),
	)
	c.JSON(http.StatusOK, prefs)
}
