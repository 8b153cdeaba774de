package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"carrental/internal/availability"
	"carrental/internal/db"
	"carrental/internal/entities"
	apperrors "carrental/internal/errors"
)

type CarService interface {
	List(ctx context.Context, f entities.CarFilter) (*entities.CarsList, error)
	Featured(ctx context.Context) ([]db.Car, error)
	Get(ctx context.Context, id string) (*db.Car, error)
	Availability(ctx context.Context, carID string, iv availability.Interval, driverRequired bool) (*entities.AvailabilityResponse, error)
	Create(ctx context.Context, req entities.CarRequest) (*db.Car, error)
	Update(ctx context.Context, id string, req entities.CarRequest) (*db.Car, error)
	Delete(ctx context.Context, id string) error
	AddReview(ctx context.Context, carID, userID string, req entities.ReviewRequest) (*db.Car, error)
	Reviews(ctx context.Context, carID string) ([]db.Review, error)
}

type CarHandler struct {
	Service CarService
	logger  *zerolog.Logger
}

func NewCarHandler(svc CarService, logger *zerolog.Logger) *CarHandler {
	return &CarHandler{Service: svc, logger: logger}
}

func (h *CarHandler) ListCars(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := entities.CarFilter{
		CarType:  q.Get("car_type"),
		FuelType: q.Get("fuel_type"),
		SortBy:   q.Get("sort_by"),
		Order:    q.Get("order"),
	}
	var err error
	if f.MinPrice, err = queryFloat(r, "min_price"); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if f.MaxPrice, err = queryFloat(r, "max_price"); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if f.Limit, f.Offset, err = pageParams(r); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	cars, err := h.Service.List(r.Context(), f)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

func (h *CarHandler) FeaturedCars(w http.ResponseWriter, r *http.Request) {
	cars, err := h.Service.Featured(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

func (h *CarHandler) GetCar(w http.ResponseWriter, r *http.Request) {
	car, err := h.Service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, car)
}

// CheckAvailability runs the availability check for ?from=&to= (RFC 3339)
// without booking anything.
func (h *CarHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := time.Parse(time.RFC3339, q.Get("from"))
	if err != nil {
		writeError(w, r, h.logger, apperrors.ErrBadRequestHTTP("from must be an RFC 3339 timestamp"))
		return
	}
	to, err := time.Parse(time.RFC3339, q.Get("to"))
	if err != nil {
		writeError(w, r, h.logger, apperrors.ErrBadRequestHTTP("to must be an RFC 3339 timestamp"))
		return
	}
	driver, _ := strconv.ParseBool(q.Get("driver_required"))

	resp, err := h.Service.Availability(r.Context(), mux.Vars(r)["id"], availability.Interval{From: from, To: to}, driver)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CarHandler) CreateCar(w http.ResponseWriter, r *http.Request) {
	var req entities.CarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	car, err := h.Service.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, car)
}

func (h *CarHandler) UpdateCar(w http.ResponseWriter, r *http.Request) {
	var req entities.CarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	car, err := h.Service.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, car)
}

func (h *CarHandler) DeleteCar(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Car deleted"})
}

func (h *CarHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	var req entities.ReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	userID, _ := caller(r)
	car, err := h.Service.AddReview(r.Context(), mux.Vars(r)["id"], userID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, car)
}

func (h *CarHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.Service.Reviews(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}
