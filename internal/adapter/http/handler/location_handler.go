package handler

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/adapter/http/dto"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/adapter/http/middleware"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/usecase"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LocationHandler serves the location, share and map routes.
type LocationHandler struct {
	locations LocationService
	shares    ShareService
	mapConfig config.MapConfig
	maxBody   int64
	logger    *logger.Logger
}

func NewLocationHandler(locations LocationService, shares ShareService, mapConfig config.MapConfig, maxBody int64, log *logger.Logger) *LocationHandler {
	return &LocationHandler{
		locations: locations,
		shares:    shares,
		mapConfig: mapConfig,
		maxBody:   maxBody,
		logger:    log.Named("LocationHandler"),
	}
}

// HandleListLocations serves GET /api/locations.
func (h *LocationHandler) HandleListLocations(w http.ResponseWriter, r *http.Request) {
	in, err := listInputFromQuery(r)
	if err != nil {
		writeError(w, h.logger, "ListLocations", err)
		return
	}
	views, err := h.locations.List(r.Context(), middleware.UserIDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, h.logger, "ListLocations", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.NewListLocationsResponse(views))
}

// HandleGetLocation serves GET /api/locations/{id}?token=...
func (h *LocationHandler) HandleGetLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	token := r.URL.Query().Get("token")
	view, err := h.locations.Get(r.Context(), id, middleware.UserIDFromContext(r.Context()), token)
	if err != nil {
		writeError(w, h.logger, "GetLocation", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.NewLocationResponse(view))
}

func (h *LocationHandler) HandleCreateLocation(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)
	var req dto.CreateLocationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, "CreateLocation", err)
		return
	}
	in, err := req.ToInput()
	if err != nil {
		writeError(w, h.logger, "CreateLocation", err)
		return
	}

	res, err := h.locations.Create(r.Context(), middleware.UserIDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, h.logger, "CreateLocation", err)
		return
	}
	h.logger.Info("Location created", zap.String("location_id", res.View.ID), zap.Int("images", len(res.Images)))
	writeJSON(w, h.logger, http.StatusCreated, dto.NewMutationResponse(res))
}

func (h *LocationHandler) HandleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.limitBody(w, r)
	var req dto.UpdateLocationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, "UpdateLocation", err)
		return
	}
	in, err := req.ToInput()
	if err != nil {
		writeError(w, h.logger, "UpdateLocation", err)
		return
	}

	res, err := h.locations.Update(r.Context(), middleware.UserIDFromContext(r.Context()), id, in)
	if err != nil {
		writeError(w, h.logger, "UpdateLocation", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.NewMutationResponse(res))
}

// HandleUpdateStatus serves PATCH /api/locations/{id}/status.
func (h *LocationHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.UpdateStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, "UpdateStatus", err)
		return
	}
	view, err := h.locations.UpdateStatus(r.Context(), middleware.UserIDFromContext(r.Context()), id, domain.LocationStatus(req.Status))
	if err != nil {
		writeError(w, h.logger, "UpdateStatus", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.NewLocationResponse(view))
}

func (h *LocationHandler) HandleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.locations.Delete(r.Context(), middleware.UserIDFromContext(r.Context()), id); err != nil {
		writeError(w, h.logger, "DeleteLocation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListMyLocations serves GET /api/profile/locations?tab=...
func (h *LocationHandler) HandleListMyLocations(w http.ResponseWriter, r *http.Request) {
	statuses, err := dto.StatusesForTab(r.URL.Query().Get("tab"))
	if err != nil {
		writeError(w, h.logger, "ListMyLocations", err)
		return
	}
	views, err := h.locations.ListMine(r.Context(), middleware.UserIDFromContext(r.Context()), statuses)
	if err != nil {
		writeError(w, h.logger, "ListMyLocations", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.NewListLocationsResponse(views))
}

func (h *LocationHandler) HandleListShares(w http.ResponseWriter, r *http.Request) {
	links, err := h.shares.ListShares(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, "ListShares", err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.NewListSharesResponse(links))
}

func (h *LocationHandler) HandleCreateShare(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateShareRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, "CreateShare", err)
		return
	}
	link, err := h.shares.CreateShare(r.Context(), middleware.UserIDFromContext(r.Context()), req.ToInput(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, h.logger, "CreateShare", err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, dto.NewShareLinkResponse(link))
}

// HandleRevokeShare serves DELETE /api/locations/{id}/shares/{shareId}.
// Revoking an already removed link still answers 204.
func (h *LocationHandler) HandleRevokeShare(w http.ResponseWriter, r *http.Request) {
	err := h.shares.RevokeShare(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "shareId"))
	if err != nil {
		writeError(w, h.logger, "RevokeShare", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMapConfig serves the map provider token and default viewport.
func (h *LocationHandler) HandleMapConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, dto.NewMapConfigResponse(h.mapConfig))
}

// HandleMapLocations serves the visible locations that have coordinates as GeoJSON.
func (h *LocationHandler) HandleMapLocations(w http.ResponseWriter, r *http.Request) {
	in, err := listInputFromQuery(r)
	if err != nil {
		writeError(w, h.logger, "MapLocations", err)
		return
	}
	views, err := h.locations.List(r.Context(), middleware.UserIDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, h.logger, "MapLocations", err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	writeJSON(w, h.logger, http.StatusOK, dto.NewFeatureCollection(views))
}

func (h *LocationHandler) limitBody(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
}

func listInputFromQuery(r *http.Request) (usecase.ListInput, error) {
	q := r.URL.Query()
	var in usecase.ListInput
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"minPrice", &in.Filter.MinPrice},
		{"maxPrice", &in.Filter.MaxPrice},
		{"minArea", &in.Filter.MinArea},
		{"maxArea", &in.Filter.MaxArea},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return in, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, p.name)
		}
		*p.dst = v
	}
	if raw := q.Get("includeOwnDrafts"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return in, fmt.Errorf("%w: includeOwnDrafts must be a boolean", domain.ErrInvalidInput)
		}
		in.IncludeOwnDrafts = v
	}
	return in, nil
}
