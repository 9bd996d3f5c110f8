package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"peakstay_mcp/internal/app"
	"peakstay_mcp/internal/domain"
)

type Handlers struct{ S *app.SearchService }

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/v1/search", h.search)
	s.mux.Post("/v1/locations/resolve", h.resolveLocation)
	// cleanup is caller-invoked, never timer-driven
	s.mux.Post("/v1/admin/ratelimit/cleanup", h.cleanupRateLimiter)
}

// searchRequest mirrors the MCP tool arguments for callers preferring plain
// HTTP.
type searchRequest struct {
	Location         string  `json:"location"`
	AccommodationIDs []int64 `json:"accommodation_ids"`
	ResortID         int64   `json:"resort_id"`
	CityID           int64   `json:"city_id"`
	Lat              float64 `json:"lat"`
	Lon              float64 `json:"lon"`
	RadiusKm         float64 `json:"radius_km"`
	Arrival          string  `json:"arrival"`
	Departure        string  `json:"departure"`
	Nights           int     `json:"nights"`
	Ages             []int   `json:"ages"`
	Persons          int     `json:"persons"`
	Currency         string  `json:"currency"`
	Lang             string  `json:"lang"`
	Limit            int     `json:"limit"`
	Page             int     `json:"page"`
}

func (req searchRequest) toParams() domain.SearchParams {
	p := domain.SearchParams{
		Location:         req.Location,
		AccommodationIDs: req.AccommodationIDs,
		ResortID:         req.ResortID,
		CityID:           req.CityID,
		Arrival:          req.Arrival,
		Departure:        req.Departure,
		Nights:           req.Nights,
		Ages:             req.Ages,
		Persons:          req.Persons,
		Currency:         req.Currency,
		Lang:             req.Lang,
		Limit:            req.Limit,
		Page:             req.Page,
	}
	if req.Lat != 0 || req.Lon != 0 {
		p.Geo = &domain.GeoSelector{Lat: req.Lat, Lon: req.Lon, RadiusKm: req.RadiusKm}
	}
	return p
}

// clientID prefers the API key header; anonymous callers share a per-IP
// budget.
func clientID(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k
	}
	return remoteIP(r)
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError(domain.ReasonParameter, "request body is not valid JSON"))
		return
	}

	res, err := h.S.Search(r.Context(), clientID(r), req.toParams())
	if err != nil {
		writeSearchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) resolveLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError(domain.ReasonParameter, "request body is not valid JSON"))
		return
	}

	matches, err := h.S.ResolveLocation(r.Context(), clientID(r), req.Query)
	if err != nil {
		writeSearchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (h *Handlers) cleanupRateLimiter(w http.ResponseWriter, r *http.Request) {
	evicted := h.S.CleanupRateLimiter()
	writeJSON(w, http.StatusOK, map[string]int{"evicted": evicted})
}

func writeSearchError(w http.ResponseWriter, err error) {
	var serr *domain.SearchError
	if errors.As(err, &serr) {
		writeError(w, serr)
		return
	}
	// should not happen: every boundary returns *SearchError
	log.Error().Err(err).Msg("unclassified error reached the HTTP surface")
	writeError(w, domain.NewError(domain.ErrUpstreamUnavailable, "internal error"))
}

func writeError(w http.ResponseWriter, serr *domain.SearchError) {
	writeJSON(w, statusFor(serr.Code), serr)
}

func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.ErrValidation:
		return http.StatusBadRequest
	case domain.ErrRateLimited:
		return http.StatusTooManyRequests
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}
