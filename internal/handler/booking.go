package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/openbooking/escrow-core/internal/escrow"
    "github.com/openbooking/escrow-core/internal/model"
    "github.com/openbooking/escrow-core/internal/repository"
)

// BookingHandler exposes the booking lifecycle over HTTP: creation,
// inspection and the escrow operations (lock, check-in, complete,
// release, refund, cancel).  All business rules live in the escrow
// service; the handler only translates JSON and maps errors to status
// codes.
type BookingHandler struct {
    Escrow *escrow.Service
}

// NewBookingHandler constructs a BookingHandler.  The escrow service
// must be non-nil.
func NewBookingHandler(svc *escrow.Service) *BookingHandler {
    if svc == nil {
        panic("nil service passed to NewBookingHandler")
    }
    return &BookingHandler{Escrow: svc}
}

// actorID resolves who is performing an operation: the authenticated
// user when JWT middleware ran, otherwise the actor_id supplied in the
// request body, otherwise "system".
func actorID(c echo.Context, bodyActor string) string {
    if v, ok := c.Get("user_id").(string); ok && v != "" {
        return v
    }
    if bodyActor != "" {
        return bodyActor
    }
    return "system"
}

// escrowStatusCode maps escrow service errors onto HTTP status codes.
func escrowStatusCode(err error) int {
    var te *escrow.TransitionError
    var pe *escrow.PrematureReleaseError
    switch {
    case errors.Is(err, repository.ErrNotFound):
        return http.StatusNotFound
    case errors.As(err, &te), errors.As(err, &pe),
        errors.Is(err, escrow.ErrNoLockedEscrow),
        errors.Is(err, escrow.ErrAlreadyLocked),
        errors.Is(err, escrow.ErrLockBusy):
        return http.StatusConflict
    case errors.Is(err, escrow.ErrInvalidDateRange),
        errors.Is(err, escrow.ErrInvalidAmount),
        errors.Is(err, escrow.ErrUnknownAssetType),
        errors.Is(err, escrow.ErrMissingTransactionHash),
        errors.Is(err, escrow.ErrInvalidTransactionFormat),
        errors.Is(err, escrow.ErrInvalidWalletFormat):
        return http.StatusBadRequest
    }
    return http.StatusInternalServerError
}

// Create handles POST /v1/bookings.  It validates the date range and
// persists a new booking in the PENDING state.
func (h *BookingHandler) Create(c echo.Context) error {
    var body struct {
        PropertyID      string `json:"property_id"`
        GuestID         string `json:"guest_id"`
        HostID          string `json:"host_id"`
        CheckInDate     string `json:"check_in_date"`
        CheckOutDate    string `json:"check_out_date"`
        NumGuests       int    `json:"num_guests"`
        TotalPriceCents int64  `json:"total_price_cents"`
        Currency        string `json:"currency"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.PropertyID == "" || body.GuestID == "" || body.HostID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "property_id, guest_id and host_id are required"})
    }
    checkIn, err := time.Parse(time.RFC3339, body.CheckInDate)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_in_date"})
    }
    checkOut, err := time.Parse(time.RFC3339, body.CheckOutDate)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_out_date"})
    }
    b := &model.Booking{
        PropertyID:      body.PropertyID,
        GuestID:         body.GuestID,
        HostID:          body.HostID,
        CheckInDate:     checkIn.UTC(),
        CheckOutDate:    checkOut.UTC(),
        NumGuests:       body.NumGuests,
        TotalPriceCents: body.TotalPriceCents,
        Currency:        body.Currency,
    }
    if err := h.Escrow.CreateBooking(c.Request().Context(), b); err != nil {
        return c.JSON(escrowStatusCode(err), echo.Map{"error": err.Error()})
    }
    return c.JSON(http.StatusCreated, b)
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
    b, err := h.Escrow.GetBooking(c.Request().Context(), c.Param("id"))
    if err != nil {
        return c.JSON(escrowStatusCode(err), echo.Map{"error": err.Error()})
    }
    return c.JSON(http.StatusOK, b)
}

// GetEscrow handles GET /v1/bookings/:id/escrow, returning the full
// ledger history for a booking.
func (h *BookingHandler) GetEscrow(c echo.Context) error {
    entries, err := h.Escrow.GetEscrowByBooking(c.Request().Context(), c.Param("id"))
    if err != nil {
        return c.JSON(escrowStatusCode(err), echo.Map{"error": err.Error()})
    }
    return c.JSON(http.StatusOK, echo.Map{"entries": entries})
}

// GetTransitions handles GET /v1/bookings/:id/transitions, returning the
// append-only audit log.
func (h *BookingHandler) GetTransitions(c echo.Context) error {
    recs, err := h.Escrow.ListTransitions(c.Request().Context(), c.Param("id"))
    if err != nil {
        return c.JSON(escrowStatusCode(err), echo.Map{"error": err.Error()})
    }
    return c.JSON(http.StatusOK, echo.Map{"transitions": recs})
}

// Lock handles POST /v1/bookings/:id/lock.  The caller (typically the
// payment webhook boundary) reports a confirmed payment; the escrow
// service locks the funds and moves the booking to PAYMENT_LOCKED.
func (h *BookingHandler) Lock(c echo.Context) error {
    var body struct {
        AmountCents     int64   `json:"amount_cents"`
        Currency        string  `json:"currency"`
        AssetType       string  `json:"asset_type"`
        TransactionHash *string `json:"transaction_hash,omitempty"`
        WalletFrom      *string `json:"wallet_from,omitempty"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.AmountCents <= 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount_cents must be positive"})
    }
    err := h.Escrow.LockPayment(c.Request().Context(), c.Param("id"),
        body.AmountCents, body.Currency, model.AssetType(body.AssetType),
        body.TransactionHash, body.WalletFrom)
    if err != nil {
        return c.JSON(escrowStatusCode(err), echo.Map{"error": err.Error()})
    }
    return c.JSON(http.StatusOK, echo.Map{"status": string(model.StatusPaymentLocked)})
}

// CheckIn handles POST /v1/bookings/:id/check-in.
func (h *BookingHandler) CheckIn(c echo.Context) error {
    return h.transition(c, model.StatusCheckedIn)
}

// Complete handles POST /v1/bookings/:id/complete.
func (h *BookingHandler) Complete(c echo.Context) error {
    return h.transition(c, model.StatusCompleted)
}

// Cancel handles POST /v1/bookings/:id/cancel.  It drives a plain state
// transition for bookings with no locked funds; bookings with funds
// locked are cancelled through Refund instead.  The state machine rejects
// cancellation once the guest has checked in.
func (h *BookingHandler) Cancel(c echo.Context) error {
    return h.transition(c, model.StatusCancelled)
}

// transition runs a single state-machine step requested over HTTP.
func (h *BookingHandler) transition(c echo.Context, to model.BookingStatus) error {
    var body struct {
        ActorID string `json:"actor_id"`
        Reason  string `json:"reason"`
    }
    // The body is optional for transitions; ignore bind errors on empty bodies.
    _ = c.Bind(&body)
    var meta map[string]string
    if body.Reason != "" {
        meta = map[string]string{"reason": body.Reason}
    }
    err := h.Escrow.TransitionState(c.Request().Context(), c.Param("id"), to, actorID(c, body.ActorID), meta)
    if err != nil {
        return c.JSON(escrowStatusCode(err), echo.Map{"error": err.Error()})
    }
    return c.JSON(http.StatusOK, echo.Map{"status": string(to)})
}

// Release handles POST /v1/bookings/:id/release.  Admin-only: moves the
// locked funds to the recipient and settles the booking.
func (h *BookingHandler) Release(c echo.Context) error {
    var body struct {
        ReleasedTo string `json:"released_to"`
        Reason     string `json:"reason"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.ReleasedTo == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "released_to is required"})
    }
    err := h.Escrow.ReleasePayment(c.Request().Context(), c.Param("id"), body.ReleasedTo, body.Reason)
    if err != nil {
        return c.JSON(escrowStatusCode(err), echo.Map{"error": err.Error()})
    }
    return c.JSON(http.StatusOK, echo.Map{"status": string(model.StatusSettled)})
}

// Refund handles POST /v1/bookings/:id/refund.  Admin-only: returns the
// locked funds to the guest and cancels the booking.
func (h *BookingHandler) Refund(c echo.Context) error {
    var body struct {
        Reason string `json:"reason"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    err := h.Escrow.RefundPayment(c.Request().Context(), c.Param("id"), body.Reason)
    if err != nil {
        return c.JSON(escrowStatusCode(err), echo.Map{"error": err.Error()})
    }
    return c.JSON(http.StatusOK, echo.Map{"status": string(model.StatusCancelled)})
}
