package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/triproute/triproute/internal/api/models"
	"github.com/triproute/triproute/internal/api/response"
	"github.com/triproute/triproute/internal/routing"
)

// PlaceHandler handles place lookup endpoints.
type PlaceHandler struct {
	service *routing.Service
}

// NewPlaceHandler creates a new PlaceHandler.
func NewPlaceHandler(service *routing.Service) *PlaceHandler {
	return &PlaceHandler{service: service}
}

// SearchPlaces handles GET /v1/places:search - geocode or keyword-search a place.
// Query parameters: q (required), city, limit (1-25, default 5).
func (h *PlaceHandler) SearchPlaces(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		response.BadRequest(w, r, "q is required", []models.FieldError{
			{Field: "q", Message: "required"},
		})
		return
	}

	limit := routing.DefaultPlaceLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, r, "limit must be an integer", []models.FieldError{
				{Field: "limit", Message: "must be an integer"},
			})
			return
		}
		limit = routing.ClampPlaceLimit(n)
	}

	result, err := h.service.SearchPlaces(r.Context(), query, r.URL.Query().Get("city"), limit)
	if err != nil {
		response.PlanningError(w, r, err)
		return
	}

	resp := models.PlaceSearchResponse{
		Query:  result.Query,
		Found:  result.Found(),
		Places: make([]models.Place, 0, len(result.Places)),
	}
	if result.Geocoded != nil {
		loc := toLocation(*result.Geocoded)
		resp.Geocoded = &loc
	}
	for _, p := range result.Places {
		resp.Places = append(resp.Places, toPlace(p))
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	response.JSON(w, r, http.StatusOK, resp)
}
