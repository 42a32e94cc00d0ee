// Coupon HTTP handlers.
//
// This file exposes the REST endpoints of the coupon lifecycle:
//   - POST /api/gerar-cupom    (issue a coupon for a customer/offer pair)
//   - POST /api/validar-cupom  (redeem a code at a partner terminal)
//   - POST /api/sync-cupons    (replay codes validated while offline)
//
// Handlers are transport-thin: they validate input, delegate to application
// services, and translate domain/service errors into HTTP results. All
// customer-facing messages are in the product language.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clubelocal/go-coupon-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// IssueService defines coupon issuance as consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type IssueService interface {
	// Issue returns the live coupon for the pair, minting one if needed.
	Issue(ctx context.Context, userID, offerID string) (*services.IssueResult, error)
}

// ValidationService defines single-code redemption.
type ValidationService interface {
	// Validate consumes a redemption code exactly once.
	Validate(ctx context.Context, code string) (*services.ValidationData, error)
}

// SyncService defines offline batch reconciliation.
type SyncService interface {
	// Sync replays offline-validated codes in one batch.
	Sync(ctx context.Context, codes []string) (*services.SyncResult, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the coupon lifecycle. It depends on
// abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	issueSvc IssueService
	valSvc   ValidationService
	syncSvc  SyncService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(issueSvc IssueService, valSvc ValidationService, syncSvc SyncService) *Handlers {
	return &Handlers{issueSvc: issueSvc, valSvc: valSvc, syncSvc: syncSvc}
}

//
// DTOs
//

// IssueCouponRequest is the JSON payload for issuing a coupon. The offer
// identifier may arrive as a JSON string or number; the web client sends
// the numeric offer primary key as-is.
type IssueCouponRequest struct {
	UserID  string      `json:"userId" example:"5f1c…"`
	OfferID json.Number `json:"offerId" example:"42"`
}

// IssueCouponResponse carries the live code for the pair and its absolute
// expiry. Identical for a fresh mint (201) and a reuse (200).
type IssueCouponResponse struct {
	Code      string    `json:"code" example:"AB12CD"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ValidateCouponRequest is the JSON payload for redeeming a single code.
type ValidateCouponRequest struct {
	Code string `json:"code" example:"AB12CD"`
}

// ValidationData is the receipt shown to the partner operator.
type ValidationData struct {
	CustomerName string    `json:"customerName" example:"Restaurante Sabor do Sul"`
	OfferTitle   string    `json:"offerTitle" example:"15% de desconto no almoço"`
	ValidatedAt  time.Time `json:"validatedAt"`
}

// ValidateCouponResponse wraps the receipt with a confirmation message.
type ValidateCouponResponse struct {
	Message        string         `json:"message" example:"Cupom validado com sucesso!"`
	ValidationData ValidationData `json:"validationData"`
}

// SyncCouponsRequest is the JSON payload for the offline replay batch.
type SyncCouponsRequest struct {
	Codes []string `json:"codes"`
}

// IssueCoupon godoc
// @ID          issueCoupon
// @Summary     Issue a coupon
// @Description Returns the live coupon for a (customer, offer) pair, minting a fresh 6-character code when none is alive. Idempotent while the coupon is valid.
// @Tags        Coupons
// @Accept      json
// @Produce     json
// @Param       body body handlers.IssueCouponRequest true "Issuance payload"
// @Success     200  {object} handlers.IssueCouponResponse "Existing live coupon returned"
// @Success     201  {object} handlers.IssueCouponResponse "New coupon minted"
// @Failure     400  {object} handlers.ErrorResponse "Missing userId or offerId"
// @Failure     500  {object} handlers.ErrorResponse "Store failure"
// @Router      /gerar-cupom [post]
func (h *Handlers) IssueCoupon(c *gin.Context) {
	var req IssueCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "userId and offerId are required.")
		return
	}

	res, err := h.issueSvc.Issue(c.Request.Context(), req.UserID, req.OfferID.String())
	if err != nil {
		switch err {
		case services.ErrMissingUser, services.ErrMissingOffer:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "userId and offerId are required.")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "Internal Server Error.")
		}
		return
	}

	status := http.StatusCreated
	if res.Reused {
		status = http.StatusOK
	}
	ok(c, status, IssueCouponResponse{Code: res.Code, ExpiresAt: res.ExpiresAt})
}

// ValidateCoupon godoc
// @ID          validateCoupon
// @Summary     Validate a coupon
// @Description Consumes a redemption code exactly once and returns the redemption receipt. Used and expired codes always fail.
// @Tags        Coupons
// @Accept      json
// @Produce     json
// @Param       body body handlers.ValidateCouponRequest true "Redemption payload"
// @Success     200  {object} handlers.ValidateCouponResponse
// @Failure     400  {object} handlers.ErrorResponse "Missing or malformed code"
// @Failure     404  {object} handlers.ErrorResponse "Unknown code"
// @Failure     409  {object} handlers.ErrorResponse "Already used"
// @Failure     410  {object} handlers.ErrorResponse "Expired"
// @Failure     500  {object} handlers.ErrorResponse "Store failure"
// @Router      /validar-cupom [post]
func (h *Handlers) ValidateCoupon(c *gin.Context) {
	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Coupon code is required.")
		return
	}

	data, err := h.valSvc.Validate(c.Request.Context(), req.Code)
	if err != nil {
		switch err {
		case services.ErrInvalidCode:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "O código deve ter 6 caracteres.")
		case services.ErrCouponNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "Cupom não encontrado.")
		case services.ErrCouponUsed:
			fail(c, http.StatusConflict, ErrCodeConflict, "Este cupom já foi utilizado.")
		case services.ErrCouponExpired:
			fail(c, http.StatusGone, ErrCodeGone, "Este cupom está expirado.")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "Internal Server Error.")
		}
		return
	}

	ok(c, http.StatusOK, ValidateCouponResponse{
		Message: "Cupom validado com sucesso!",
		ValidationData: ValidationData{
			CustomerName: data.CustomerName,
			OfferTitle:   data.OfferTitle,
			ValidatedAt:  data.ValidatedAt,
		},
	})
}

// SyncCoupons godoc
// @ID          syncCoupons
// @Summary     Sync offline-validated coupons
// @Description Replays a batch of codes validated while the terminal was offline. Each code is re-checked against live store state; non-redeemable codes are reported with a single generic reason.
// @Tags        Coupons
// @Accept      json
// @Produce     json
// @Param       body body handlers.SyncCouponsRequest true "Batch payload"
// @Success     200  {object} services.SyncResult
// @Failure     400  {object} handlers.ErrorResponse "Empty or missing codes array"
// @Failure     500  {object} handlers.ErrorResponse "Bulk update failure"
// @Router      /sync-cupons [post]
func (h *Handlers) SyncCoupons(c *gin.Context) {
	var req SyncCouponsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "An array of codes is required.")
		return
	}

	res, err := h.syncSvc.Sync(c.Request.Context(), req.Codes)
	if err != nil {
		switch err {
		case services.ErrNoCodes:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "An array of codes is required.")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "Failed to sync coupons.")
		}
		return
	}

	ok(c, http.StatusOK, res)
}
