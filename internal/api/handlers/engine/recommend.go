package engine

import (
	"net/http"

	"pantry-chef/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HandleRecommend returns the ordered scored recipe list for a user.
// A recipe source outage yields a degraded (possibly stale) result with
// HTTP 200, never a hard failure.
func (h *Handler) HandleRecommend(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	result, err := h.svc.Recommend(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	common.LogInfo("recommendation served",
		zap.String("user_id", id),
		zap.Int("recipes", len(result.Recipes)),
		zap.Bool("stale", result.Stale),
		zap.Bool("degraded", result.Degraded),
		zap.String("request_id", c.GetHeader("X-Request-ID")),
	)

	c.JSON(http.StatusOK, result)
}
