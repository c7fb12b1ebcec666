package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/triproute/triproute/internal/api/models"
	"github.com/triproute/triproute/internal/api/response"
	"github.com/triproute/triproute/internal/routing"
)

// maxBodyBytes bounds planning request bodies.
const maxBodyBytes = 64 << 10

// RouteHandler handles routing endpoints.
type RouteHandler struct {
	service *routing.Service
	logger  zerolog.Logger
	now     func() time.Time
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(service *routing.Service, logger zerolog.Logger) *RouteHandler {
	return &RouteHandler{
		service: service,
		logger:  logger.With().Str("handler", "route").Logger(),
		now:     time.Now,
	}
}

// PlanRoute handles POST /v1/routes:plan - plan a single-mode trip.
func (h *RouteHandler) PlanRoute(w http.ResponseWriter, r *http.Request) {
	var input models.PlanRouteRequest
	if !decodeBody(w, r, &input) {
		return
	}

	var fieldErrors []models.FieldError
	fieldErrors = requireText(fieldErrors, "origin", input.Origin)
	fieldErrors = requireText(fieldErrors, "destination", input.Destination)
	mode, err := routing.ParseMode(input.Mode)
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "mode", Message: "must be one of driving, walking, cycling, electrobike, transit"})
	}
	var strategy *routing.DrivingStrategy
	if input.Strategy != nil {
		s := routing.DrivingStrategy(*input.Strategy)
		if !s.Valid() {
			fieldErrors = append(fieldErrors, models.FieldError{Field: "strategy", Message: "must be between 0 and 6"})
		}
		strategy = &s
	}
	for i, wp := range input.Waypoints {
		if strings.TrimSpace(wp) == "" {
			fieldErrors = append(fieldErrors, models.FieldError{Field: fmt.Sprintf("waypoints[%d]", i), Message: "must not be blank"})
		}
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid route request", fieldErrors)
		return
	}

	plan, err := h.service.Plan(r.Context(), mode, routing.PlanRequest{
		Origin:      input.Origin,
		Destination: input.Destination,
		Waypoints:   input.Waypoints,
		Strategy:    strategy,
		City:        input.City,
	}, input.Alternatives)
	if err != nil {
		h.logger.Info().Err(err).Str("mode", string(mode)).Msg("route planning failed")
		response.PlanningError(w, r, err)
		return
	}

	now := h.now()
	loc := h.service.Location()
	response.JSON(w, r, http.StatusOK, models.PlanRouteResponse{
		GeneratedAt: models.Timestamp(now),
		Provider:    h.service.ProviderName(),
		Plan:        toRoutePlan(*plan, now, loc),
		Summary:     plan.Summary(routing.SummaryOptions{Now: now, Location: loc}),
	})
}

// PlanChain handles POST /v1/routes:chain - plan an ordered multi-stop trip.
func (h *RouteHandler) PlanChain(w http.ResponseWriter, r *http.Request) {
	var input models.PlanChainRequest
	if !decodeBody(w, r, &input) {
		return
	}

	var fieldErrors []models.FieldError
	if len(input.Stops) < 2 {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "stops", Message: "at least two stops are required"})
	}
	for i, stop := range input.Stops {
		if strings.TrimSpace(stop) == "" {
			fieldErrors = append(fieldErrors, models.FieldError{Field: fmt.Sprintf("stops[%d]", i), Message: "must not be blank"})
		}
	}
	mode, err := routing.ParseMode(input.Mode)
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "mode", Message: "must be one of driving, walking, cycling, electrobike, transit"})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid chain request", fieldErrors)
		return
	}

	result, err := h.service.Chain(r.Context(), input.Stops, mode, input.City)
	if err != nil {
		response.PlanningError(w, r, err)
		return
	}

	now := h.now()
	loc := h.service.Location()
	resp := models.PlanChainResponse{
		GeneratedAt:          models.Timestamp(now),
		Mode:                 string(result.Mode),
		Stops:                result.Stops,
		Legs:                 make([]models.ChainLeg, 0, len(result.Legs)),
		TotalDistanceMeters:  result.TotalDistanceM,
		TotalDurationSeconds: result.TotalDurationS,
		Summary:              result.TextSummary(),
	}
	for _, leg := range result.Legs {
		out := models.ChainLeg{Index: leg.Index, From: leg.From, To: leg.To}
		if leg.OK() {
			plan := toRoutePlan(*leg.Plan, now, loc)
			out.Plan = &plan
		} else {
			resp.FailedLegs++
			out.Failure = &models.LegFailure{
				Kind:    string(leg.Failure),
				Message: routing.Describe(leg.Err),
			}
		}
		resp.Legs = append(resp.Legs, out)
	}
	if resp.FailedLegs > 0 {
		h.logger.Info().Int("failed_legs", resp.FailedLegs).Int("legs", len(resp.Legs)).Msg("chain planned with failed legs")
	}

	response.JSON(w, r, http.StatusOK, resp)
}

// Recommend handles POST /v1/routes:recommend - rank walking, transit and driving.
func (h *RouteHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var input models.RecommendRequest
	if !decodeBody(w, r, &input) {
		return
	}

	var fieldErrors []models.FieldError
	fieldErrors = requireText(fieldErrors, "origin", input.Origin)
	fieldErrors = requireText(fieldErrors, "destination", input.Destination)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid recommendation request", fieldErrors)
		return
	}

	rec, err := h.service.Recommend(r.Context(), input.Origin, input.Destination, input.City)
	if err != nil {
		h.logger.Info().Err(err).Msg("recommendation failed")
		response.PlanningError(w, r, err)
		return
	}

	resp := models.RecommendResponse{
		GeneratedAt: models.Timestamp(h.now()),
		Best:        toTravelOption(rec.Best),
		Options:     make([]models.TravelOption, 0, len(rec.AllOptions)),
		Summary:     rec.TextSummary(),
	}
	for _, opt := range rec.AllOptions {
		resp.Options = append(resp.Options, toTravelOption(opt))
	}
	for method, failure := range rec.Failures {
		if resp.Unavailable == nil {
			resp.Unavailable = make(map[string]string, len(rec.Failures))
		}
		resp.Unavailable[method] = routing.Describe(failure)
	}

	response.JSON(w, r, http.StatusOK, resp)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return false
	}
	return true
}

func requireText(errs []models.FieldError, field, value string) []models.FieldError {
	if strings.TrimSpace(value) == "" {
		return append(errs, models.FieldError{Field: field, Message: "required"})
	}
	return errs
}
