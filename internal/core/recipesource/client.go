package recipesource

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pantry-chef/internal/infrastructure/config"
	"pantry-chef/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

// Client talks to the external recipe source. The engine sends a single
// delimited filter string as the sole query parameter and reads back
// candidate records; any failure or timeout surfaces as
// ErrRecipeSourceUnavailable so the cache layer can fall back to a stale
// entry.
type Client struct {
	cfg    *config.RecipeSourceConfig
	client *resty.Client
}

// searchResponse is the source's search payload. Only the candidate
// fields the engine depends on are decoded.
type searchResponse struct {
	Recipes []common.RecipeCandidate `json:"recipes"`
}

// NewClient creates a recipe source client.
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.RecipeSource.BaseURL).
		SetTimeout(cfg.RecipeSource.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.RecipeSource.APIKey != "" {
		client.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.RecipeSource.APIKey))
	}

	return &Client{
		cfg:    &cfg.RecipeSource,
		client: client,
	}
}

// Search fetches recipe candidates matching the rendered filter query.
func (c *Client) Search(ctx context.Context, filterQuery string) ([]common.RecipeCandidate, error) {
	start := time.Now()

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("filters", filterQuery).
		Get("/recipes/search")

	requestID := ""
	if resp != nil {
		requestID = resp.Header().Get("X-Request-ID")
	}
	common.LogSourceCall(filterQuery, time.Since(start), err, requestID)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrRecipeSourceUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: source returned status %d", common.ErrRecipeSourceUnavailable, resp.StatusCode())
	}

	var result searchResponse
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse source response: %v", common.ErrRecipeSourceUnavailable, err)
	}

	return result.Recipes, nil
}
