package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/masaladesk/masaladesk/internal/billing"
	catalogdomain "github.com/masaladesk/masaladesk/internal/catalog/domain"
	inventorydomain "github.com/masaladesk/masaladesk/internal/inventory/domain"
	invoicedomain "github.com/masaladesk/masaladesk/internal/invoice/domain"
	orderdomain "github.com/masaladesk/masaladesk/internal/order/domain"
	purchasedomain "github.com/masaladesk/masaladesk/internal/purchase/domain"
	"github.com/masaladesk/masaladesk/pkg/db"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}

	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    err.Error(),
			Message: "validation error",
		}

	case errors.Is(err, billing.ErrOverpayment):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "overpayment",
			Code:    "overpayment",
			Message: "payment exceeds the amount owed",
		}

	case errors.Is(err, orderdomain.ErrSplitMismatch):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "split_mismatch",
			Code:    "split_mismatch",
			Message: "split amounts do not sum to the order total",
		}

	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    err.Error(),
			Message: "conflict",
		}

	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}

	case errors.Is(err, db.ErrContention):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Code:    "contention",
			Message: "resource busy, retry the request",
		}

	case errors.Is(err, inventorydomain.ErrCorruptionDetected):
		return http.StatusInternalServerError, errorPayload{
			Type:    "corruption_detected",
			Code:    "corruption_detected",
			Message: "stock cache diverged from the movement log",
		}

	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, billing.ErrInvalidLineItem),
		errors.Is(err, billing.ErrInvalidDiscount),
		errors.Is(err, catalogdomain.ErrInvalidProduct),
		errors.Is(err, catalogdomain.ErrInvalidMenu),
		errors.Is(err, orderdomain.ErrInvalidOrder),
		errors.Is(err, invoicedomain.ErrInvalidPayment),
		errors.Is(err, purchasedomain.ErrInvalidPurchase),
		errors.Is(err, purchasedomain.ErrInvalidPayment),
		errors.Is(err, inventorydomain.ErrInvalidMovement),
		errors.Is(err, inventorydomain.ErrUnknownReference):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, orderdomain.ErrAlreadyFinalized),
		errors.Is(err, orderdomain.ErrInvalidTransition),
		errors.Is(err, orderdomain.ErrNotServed),
		errors.Is(err, purchasedomain.ErrNotOrdered),
		errors.Is(err, invoicedomain.ErrCancelled):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, purchasedomain.ErrNotFound),
		errors.Is(err, catalogdomain.ErrNotFound),
		errors.Is(err, inventorydomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	_, payload := mapError(err)
	return payload.Type, err.Error()
}
