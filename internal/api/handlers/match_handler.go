package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zatekoja/carematch/backend/internal/domain/entities"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/observability"
)

const maxIntentBodyBytes = 64 << 10

// HospitalMatcher ranks providers for a patient intent
type HospitalMatcher interface {
	MatchHospitals(ctx context.Context, intent *entities.PatientIntent) ([]*entities.HospitalMatch, error)
}

// MatchHandler handles hospital matching requests
type MatchHandler struct {
	matcher HospitalMatcher
	timeout time.Duration
}

// NewMatchHandler creates a new match handler. A zero timeout leaves the request
// context untouched.
func NewMatchHandler(matcher HospitalMatcher, timeout time.Duration) *MatchHandler {
	return &MatchHandler{
		matcher: matcher,
		timeout: timeout,
	}
}

// MatchHospitals handles POST /api/match
func (h *MatchHandler) MatchHospitals(w http.ResponseWriter, r *http.Request) {
	var intent entities.PatientIntent
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIntentBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&intent); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := withTimeout(r.Context(), h.timeout)
	defer cancel()

	matches, err := h.matcher.MatchHospitals(ctx, &intent)
	if err != nil {
		observability.LoggerFromContext(ctx).Error().Err(err).Str("condition", intent.Condition).Msg("Hospital matching failed")
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"matches": matches,
		"count":   len(matches),
	})
}
