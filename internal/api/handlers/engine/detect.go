package engine

import (
	"net/http"

	"pantry-chef/internal/core/detection"
	"pantry-chef/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// resolveRequest carries raw detection candidates from the vision
// collaborator.
type resolveRequest struct {
	Candidates []detection.Candidate `json:"candidates" binding:"required"`
}

// resolveResponse is the consolidated ingredient set.
type resolveResponse struct {
	Ingredients []detection.ResolvedIngredient `json:"ingredients"`
	Confidence  map[string]float64             `json:"confidence"`
}

// HandleResolve consolidates raw detection candidates into a clean,
// confidence-scored ingredient set. Persisting the result as pantry rows
// is the caller's responsibility (typically a follow-up pantry upsert once
// the user confirms).
func (h *Handler) HandleResolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	for _, cand := range req.Candidates {
		if cand.Confidence < 0 || cand.Confidence > 1 {
			c.JSON(http.StatusBadRequest, common.ErrorResponse{
				Code:    common.ErrCodeInvalidRequest,
				Message: "candidate confidence must be in [0,1]",
			})
			return
		}
	}

	resolved := h.resolver.Resolve(req.Candidates)

	common.LogInfo("detection candidates resolved",
		zap.Int("candidates", len(req.Candidates)),
		zap.Int("ingredients", len(resolved)),
		zap.String("request_id", c.GetHeader("X-Request-ID")),
	)

	if resolved == nil {
		resolved = []detection.ResolvedIngredient{}
	}
	c.JSON(http.StatusOK, resolveResponse{
		Ingredients: resolved,
		Confidence:  detection.ConfidenceMap(resolved),
	})
}
