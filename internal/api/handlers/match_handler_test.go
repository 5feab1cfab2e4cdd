package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/carematch/backend/internal/api/handlers"
	"github.com/zatekoja/carematch/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/carematch/backend/pkg/errors"
)

type MockHospitalMatcher struct {
	mock.Mock
}

func (m *MockHospitalMatcher) MatchHospitals(ctx context.Context, intent *entities.PatientIntent) ([]*entities.HospitalMatch, error) {
	args := m.Called(ctx, intent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.HospitalMatch), args.Error(1)
}

type matchResponse struct {
	Matches []*entities.HospitalMatch `json:"matches"`
	Count   int                       `json:"count"`
}

func TestMatchHandler_ReturnsRankedMatches(t *testing.T) {
	matcher := new(MockHospitalMatcher)
	handler := handlers.NewMatchHandler(matcher, time.Second)

	expected := []*entities.HospitalMatch{
		{
			Hospital:   &entities.CandidateProvider{ID: "apollo", Name: "Apollo Hospitals", City: "Chennai"},
			Breakdown:  entities.MatchBreakdown{Condition: 91, Doctors: 80, Outcomes: 92, Price: 95, Location: 100, Preference: 75},
			MatchScore: 90,
		},
	}
	matcher.On("MatchHospitals", mock.Anything, mock.MatchedBy(func(intent *entities.PatientIntent) bool {
		return intent.Condition == "IVF" &&
			intent.BudgetMax != nil && *intent.BudgetMax == 200000 &&
			intent.BudgetMin == nil &&
			intent.Timeline == entities.TimelineImmediate
	})).Return(expected, nil)

	body := `{"condition":"IVF","budget_max":200000,"preferred_location":"Chennai","timeline":"immediate"}`
	req := httptest.NewRequest(http.MethodPost, "/api/match", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.MatchHospitals(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp matchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "apollo", resp.Matches[0].Hospital.ID)
	assert.Equal(t, 90, resp.Matches[0].MatchScore)
	assert.Equal(t, 100, resp.Matches[0].Breakdown.Location)
	matcher.AssertExpectations(t)
}

func TestMatchHandler_EmptyResultIsArray(t *testing.T) {
	matcher := new(MockHospitalMatcher)
	handler := handlers.NewMatchHandler(matcher, 0)
	matcher.On("MatchHospitals", mock.Anything, mock.Anything).Return([]*entities.HospitalMatch{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/match", strings.NewReader(`{"condition":"IVF"}`))
	rec := httptest.NewRecorder()
	handler.MatchHospitals(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"matches":[],"count":0}`, rec.Body.String())
}

func TestMatchHandler_RejectsMalformedBody(t *testing.T) {
	matcher := new(MockHospitalMatcher)
	handler := handlers.NewMatchHandler(matcher, time.Second)

	for _, body := range []string{`{`, `{"condition":"IVF","unknown":1}`, `{"budget_min":"cheap"}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/match", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.MatchHospitals(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	matcher.AssertNotCalled(t, "MatchHospitals", mock.Anything, mock.Anything)
}

func TestMatchHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "validation",
			err:        apperrors.NewValidationError("condition is required"),
			wantStatus: http.StatusBadRequest,
			wantError:  "condition is required",
		},
		{
			name:       "data unavailable",
			err:        apperrors.NewDataUnavailableError("failed to load candidate providers", errors.New("dial tcp")),
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "data temporarily unavailable",
		},
		{
			name:       "unclassified",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matcher := new(MockHospitalMatcher)
			handler := handlers.NewMatchHandler(matcher, time.Second)
			matcher.On("MatchHospitals", mock.Anything, mock.Anything).Return(nil, tt.err)

			req := httptest.NewRequest(http.MethodPost, "/api/match", strings.NewReader(`{"condition":"IVF"}`))
			rec := httptest.NewRecorder()
			handler.MatchHospitals(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestMatchHandler_AppliesTimeout(t *testing.T) {
	matcher := new(MockHospitalMatcher)
	handler := handlers.NewMatchHandler(matcher, 50*time.Millisecond)

	matcher.On("MatchHospitals", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), mock.Anything).Return(nil, context.DeadlineExceeded)

	req := httptest.NewRequest(http.MethodPost, "/api/match", strings.NewReader(`{"condition":"IVF"}`))
	rec := httptest.NewRecorder()
	handler.MatchHospitals(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	matcher.AssertExpectations(t)
}
