package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/PouryDev/session-booking/internal/booking"
	"github.com/PouryDev/session-booking/internal/model"
	"github.com/PouryDev/session-booking/internal/repository"
)

// ReservationHandler exposes the reservation engine over HTTP.  The
// handlers are a thin serialization layer: identity and request
// validation belong to upstream collaborators, so the caller supplies
// the user id directly and only structural checks happen here.
type ReservationHandler struct {
	Manager *booking.Manager
}

// NewReservationHandler constructs a ReservationHandler.  The manager
// must be non-nil.
func NewReservationHandler(m *booking.Manager) *ReservationHandler {
	if m == nil {
		panic("nil manager passed to NewReservationHandler")
	}
	return &ReservationHandler{Manager: m}
}

// reservationResponse is the wire shape of a reservation.
type reservationResponse struct {
	ID             uint64  `json:"id"`
	UserID         uint64  `json:"user_id"`
	SessionID      uint64  `json:"session_id"`
	NumberOfPeople uint32  `json:"number_of_people"`
	PaymentStatus  string  `json:"payment_status"`
	ExpiresAt      *string `json:"expires_at,omitempty"`
	ValidatedAt    *string `json:"validated_at,omitempty"`
	ValidatedBy    *uint64 `json:"validated_by,omitempty"`
	CancelledAt    *string `json:"cancelled_at,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

func toReservationResponse(r *model.Reservation) reservationResponse {
	out := reservationResponse{
		ID:             r.ID,
		UserID:         r.UserID,
		SessionID:      r.SessionID,
		NumberOfPeople: r.NumberOfPeople,
		PaymentStatus:  string(r.PaymentStatus),
		ValidatedBy:    r.ValidatedBy,
		CreatedAt:      r.CreatedAt.UTC().Format(time.RFC3339),
	}
	out.ExpiresAt = rfc3339(r.ExpiresAt)
	out.ValidatedAt = rfc3339(r.ValidatedAt)
	out.CancelledAt = rfc3339(r.CancelledAt)
	return out
}

func rfc3339(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// CreateReservation handles POST /v1/sessions/:id/reservations.  The
// body carries the booking user and party size.  It returns 201 with
// the created reservation, 404 when the session does not exist and 409
// when the seats no longer fit after the expiration sweep.
func (h *ReservationHandler) CreateReservation(c echo.Context) error {
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sessionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var body struct {
		UserID         uint64 `json:"user_id"`
		NumberOfPeople uint32 `json:"number_of_people"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
	}
	res, err := h.Manager.CreateReservation(c.Request().Context(), body.UserID, sessionID, body.NumberOfPeople)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrInvalidPartySize):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "number_of_people must be positive"})
		case errors.Is(err, repository.ErrSessionNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		case errors.Is(err, booking.ErrCapacityExceeded):
			return c.JSON(http.StatusConflict, echo.Map{"error": "not enough available spots"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create reservation"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": toReservationResponse(res)})
}

// CancelReservation handles DELETE /v1/reservations/:id.  Cancelling an
// already cancelled reservation is a benign no-op reported as
// cancelled=false, matching the engine's boolean contract.
func (h *ReservationHandler) CancelReservation(c echo.Context) error {
	resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	cancelled, err := h.Manager.CancelReservation(c.Request().Context(), resID)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel reservation"})
	}
	return c.JSON(http.StatusOK, echo.Map{"cancelled": cancelled})
}

// GetAvailability handles GET /v1/sessions/:id/availability.
func (h *ReservationHandler) GetAvailability(c echo.Context) error {
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sessionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	spots, err := h.Manager.AvailableSpots(c.Request().Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load availability"})
	}
	return c.JSON(http.StatusOK, echo.Map{"available_spots": spots})
}

// GetTotalAmount handles GET /v1/reservations/:id/total.  The amount is
// what the payment subsystem should charge: session price per
// participant plus the cafe order total.
func (h *ReservationHandler) GetTotalAmount(c echo.Context) error {
	resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	total, err := h.Manager.TotalAmountCents(c.Request().Context(), resID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReservationNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		case errors.Is(err, repository.ErrSessionNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute total"})
	}
	return c.JSON(http.StatusOK, echo.Map{"total_amount_cents": total})
}

// ListReservations handles GET /v1/users/:id/reservations.  It returns
// all reservations created by the user, newest first; an empty array
// when none exist.
func (h *ReservationHandler) ListReservations(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || userID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	items, err := h.Manager.ListReservations(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	out := make([]reservationResponse, 0, len(items))
	for i := range items {
		out = append(out, toReservationResponse(&items[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
