package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/openbooking/escrow-core/internal/escrow"
    "github.com/openbooking/escrow-core/internal/model"
    "github.com/openbooking/escrow-core/internal/payment"
    "github.com/openbooking/escrow-core/internal/repository"
)

// PaymentHandler exposes the payment facade and the on-chain
// confirmation feed over HTTP.  Fiat webhooks and the wallet frontend
// both funnel into Process; the external RPC listener feeds
// Confirmations.
type PaymentHandler struct {
    Payments *payment.Service
    Escrow   *escrow.Service
}

// NewPaymentHandler constructs a PaymentHandler.  Both services must be
// non-nil.
func NewPaymentHandler(payments *payment.Service, esc *escrow.Service) *PaymentHandler {
    if payments == nil || esc == nil {
        panic("nil service passed to NewPaymentHandler")
    }
    return &PaymentHandler{Payments: payments, Escrow: esc}
}

// Process handles POST /v1/payments.  Business rejections (compliance
// block, malformed hash) return 422 with the failed result so the caller
// sees the reason; store faults return 500.
func (h *PaymentHandler) Process(c echo.Context) error {
    var req payment.Request
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if req.UserID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
    }
    if !methodSupported(req.Method) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unsupported payment method"})
    }
    res, err := h.Payments.Process(c.Request().Context(), req)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment processing failed"})
    }
    if !res.Success {
        return c.JSON(http.StatusUnprocessableEntity, res)
    }
    return c.JSON(http.StatusCreated, res)
}

// Refund handles POST /v1/payments/:id/refund.
func (h *PaymentHandler) Refund(c echo.Context) error {
    var body struct {
        AmountCents *int64 `json:"amount_cents,omitempty"`
    }
    _ = c.Bind(&body)
    res, err := h.Payments.Refund(c.Request().Context(), c.Param("id"), body.AmountCents)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refund failed"})
    }
    if !res.Success {
        return c.JSON(http.StatusUnprocessableEntity, res)
    }
    return c.JSON(http.StatusOK, res)
}

// Status handles GET /v1/payments/:id, reading back the stored
// transaction status.
func (h *PaymentHandler) Status(c echo.Context) error {
    status, err := h.Payments.Status(c.Request().Context(), c.Param("id"))
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "status lookup failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"status": string(status)})
}

// Confirmations handles POST /v1/confirmations, the idempotent feed the
// external on-chain watcher calls as confirmations accumulate.
func (h *PaymentHandler) Confirmations(c echo.Context) error {
    var body struct {
        TransactionHash string  `json:"transaction_hash"`
        Confirmations   int     `json:"confirmations"`
        BlockNumber     *uint64 `json:"block_number,omitempty"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.TransactionHash == "" || body.Confirmations < 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "transaction_hash and a non-negative confirmations count are required"})
    }
    err := h.Escrow.UpdateConfirmations(c.Request().Context(), body.TransactionHash, body.Confirmations, body.BlockNumber)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "no escrow entry for transaction hash"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirmation update failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func methodSupported(m model.PaymentMethod) bool {
    switch m {
    case model.MethodETH, model.MethodDAI, model.MethodA7A5,
        model.MethodSBP, model.MethodMir, model.MethodYooKassa,
        model.MethodSEPA, model.MethodAdyen, model.MethodKlarna,
        model.MethodBorica, model.MethodEPay:
        return true
    }
    return false
}
