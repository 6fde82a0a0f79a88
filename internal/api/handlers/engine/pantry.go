package engine

import (
	"net/http"
	"time"

	"pantry-chef/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// pantryItemRequest is the pantry upsert payload.
type pantryItemRequest struct {
	IngredientName  string     `json:"ingredient_name" binding:"required"`
	Category        string     `json:"category"`
	Quantity        float64    `json:"quantity"`
	Unit            string     `json:"unit"`
	ExpirationDate  *time.Time `json:"expiration_date"`
	ConfidenceScore float64    `json:"confidence_score"`
}

// HandleListPantry lists the user's active pantry rows.
func (h *Handler) HandleListPantry(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	items, err := h.svc.PantryItems(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// HandleUpsertPantry creates or replaces the row for the ingredient's
// canonical name. The query cache is invalidated for the ingredient before
// the response is written.
func (h *Handler) HandleUpsertPantry(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	var req pantryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	item := common.PantryItem{
		UserID:          id,
		IngredientName:  req.IngredientName,
		Category:        req.Category,
		Quantity:        req.Quantity,
		Unit:            req.Unit,
		ExpirationDate:  req.ExpirationDate,
		ConfidenceScore: req.ConfidenceScore,
	}
	if err := h.svc.UpsertPantryItem(c.Request.Context(), &item); err != nil {
		respondError(c, err)
		return
	}

	common.LogInfo("pantry item upserted",
		zap.String("user_id", id),
		zap.String("ingredient", item.IngredientName),
	)
	c.JSON(http.StatusOK, item)
}

// HandleDeletePantry removes a pantry row by id and invalidates the cache
// for its ingredient.
func (h *Handler) HandleDeletePantry(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	itemID := c.Param("id")

	item, err := h.svc.DeletePantryItem(c.Request.Context(), id, itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	common.LogInfo("pantry item deleted",
		zap.String("user_id", id),
		zap.String("ingredient", item.IngredientName),
	)
	c.JSON(http.StatusOK, item)
}
