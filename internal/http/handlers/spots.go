package handlers

import (
	"context"
	"net/http"

	"github.com/hongminglow/parkshare/internal/apperr"
	"github.com/hongminglow/parkshare/internal/geo"
	"github.com/hongminglow/parkshare/internal/http/respond"
	"github.com/hongminglow/parkshare/internal/middleware"
	"github.com/hongminglow/parkshare/internal/models"
	"github.com/hongminglow/parkshare/internal/models/dto"
	"github.com/hongminglow/parkshare/internal/spots"
)

const defaultPerPage = 100

// SpotService is the spot lifecycle surface the HTTP layer calls.
type SpotService interface {
	Submit(ctx context.Context, submitterID int64, spot, reporter geo.Point) (models.Spot, error)
	List(ctx context.Context, q spots.ListQuery) (spots.ListResult, error)
	Choose(ctx context.Context, spotID, actorID int64) (spots.ChooseResult, error)
	Occupy(ctx context.Context, spotID int64) (models.Spot, error)
	Report(ctx context.Context, spotID int64) (models.Spot, error)
}

// SpotHandler serves the spot endpoints. All routes require a bearer token.
type SpotHandler struct {
	spots  SpotService
	tokens middleware.TokenParser
}

// NewSpotHandler constructs the handler.
func NewSpotHandler(service SpotService, tokens middleware.TokenParser) *SpotHandler {
	return &SpotHandler{spots: service, tokens: tokens}
}

// Register attaches spot routes to the mux.
func (h *SpotHandler) Register(mux *http.ServeMux) {
	mux.Handle("GET /api/spots", h.authed(h.handleList))
	mux.Handle("POST /api/spots", h.authed(h.handleSubmit))
	mux.Handle("POST /api/spots/{id}/choose", h.authed(h.handleChoose))
	mux.Handle("POST /api/spots/{id}/occupy", h.authed(h.handleOccupy))
	mux.Handle("POST /api/spots/{id}/report", h.authed(h.handleReport))
}

func (h *SpotHandler) authed(fn http.HandlerFunc) http.Handler {
	return middleware.RequireAuth(h.tokens, fn)
}

func (h *SpotHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		respond.Fail(w, err)
		return
	}
	result, err := h.spots.List(r.Context(), q)
	if err != nil {
		respond.Fail(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", result)
}

func listQuery(r *http.Request) (spots.ListQuery, error) {
	page, err := queryInt(r, "page", 1, apperr.ReasonInvalidPagination)
	if err != nil {
		return spots.ListQuery{}, err
	}
	perPage, err := queryInt(r, "per_page", defaultPerPage, apperr.ReasonInvalidPagination)
	if err != nil {
		return spots.ListQuery{}, err
	}
	lat, err := queryFloat(r, "user_latitude", apperr.ReasonInvalidCoordinates)
	if err != nil {
		return spots.ListQuery{}, err
	}
	lng, err := queryFloat(r, "user_longitude", apperr.ReasonInvalidCoordinates)
	if err != nil {
		return spots.ListQuery{}, err
	}
	radius, err := queryFloat(r, "radius", apperr.ReasonInvalidRadius)
	if err != nil {
		return spots.ListQuery{}, err
	}

	q := spots.ListQuery{Page: page, PerPage: perPage, Radius: radius}
	switch {
	case lat != nil && lng != nil:
		q.Center = &geo.Point{Lat: *lat, Lng: *lng}
	case lat != nil || lng != nil:
		return spots.ListQuery{}, apperr.Validation(apperr.ReasonMissingLocation,
			"user_latitude and user_longitude must be given together")
	}
	return q, nil
}

func (h *SpotHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var req dto.SubmitSpotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Fail(w, err)
		return
	}
	if req.Latitude == nil || req.Longitude == nil || req.UserLatitude == nil || req.UserLongitude == nil {
		respond.Fail(w, apperr.Validation(apperr.ReasonMissingLocation, "Missing location data"))
		return
	}

	spot, err := h.spots.Submit(r.Context(), userID,
		geo.Point{Lat: *req.Latitude, Lng: *req.Longitude},
		geo.Point{Lat: *req.UserLatitude, Lng: *req.UserLongitude})
	if err != nil {
		respond.Fail(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "Spot submitted successfully", dto.SpotResponse{Spot: spot})
}

func (h *SpotHandler) handleChoose(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		respond.Fail(w, err)
		return
	}
	result, err := h.spots.Choose(r.Context(), id, userID)
	if err != nil {
		respond.Fail(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Spot chosen successfully", result)
}

func (h *SpotHandler) handleOccupy(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Fail(w, err)
		return
	}
	spot, err := h.spots.Occupy(r.Context(), id)
	if err != nil {
		respond.Fail(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Spot marked as occupied", dto.SpotResponse{Spot: spot})
}

func (h *SpotHandler) handleReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Fail(w, err)
		return
	}
	spot, err := h.spots.Report(r.Context(), id)
	if err != nil {
		respond.Fail(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Spot reported successfully", dto.SpotResponse{Spot: spot})
}
