package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/zatekoja/carematch/backend/internal/domain/entities"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/observability"
)

// Suggester composes typeahead suggestions
type Suggester interface {
	Suggest(ctx context.Context, query string) ([]*entities.Suggestion, error)
}

// SuggestionHandler handles typeahead requests
type SuggestionHandler struct {
	suggester Suggester
	timeout   time.Duration
}

// NewSuggestionHandler creates a new suggestion handler
func NewSuggestionHandler(suggester Suggester, timeout time.Duration) *SuggestionHandler {
	return &SuggestionHandler{
		suggester: suggester,
		timeout:   timeout,
	}
}

// Suggest handles GET /api/search/suggest?q=
func (h *SuggestionHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	ctx, cancel := withTimeout(r.Context(), h.timeout)
	defer cancel()

	suggestions, err := h.suggester.Suggest(ctx, query)
	if err != nil {
		observability.LoggerFromContext(ctx).Error().Err(err).Str("query", query).Msg("Suggestion lookup failed")
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}
