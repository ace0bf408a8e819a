package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/shop-backend/pkg/circuitbreaker"
	"example.com/shop-backend/pkg/logger"
	"example.com/shop-backend/services/shop/internal/domain"
)

// ErrorResponse — формат ошибки API.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// errorMapping — соответствие доменной ошибки HTTP статусу и коду ответа.
// Проверяется по порядку, первое совпадение по errors.Is выигрывает.
var errorMapping = []struct {
	target error
	status int
	code   string
}{
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrEmptyOrder, http.StatusUnprocessableEntity, "empty_order"},
	{domain.ErrProductUnavailable, http.StatusUnprocessableEntity, "product_unavailable"},
	{domain.ErrInvalidCoupon, http.StatusUnprocessableEntity, "invalid_coupon"},
	{domain.ErrInsufficientInventory, http.StatusConflict, "insufficient_inventory"},
	{domain.ErrInvalidStateTransition, http.StatusConflict, "invalid_state_transition"},
	{domain.ErrPaymentVerificationFailed, http.StatusPaymentRequired, "payment_verification_failed"},
	{domain.ErrPaymentInProgress, http.StatusConflict, "payment_in_progress"},
	{domain.ErrOrderConflict, http.StatusConflict, "conflict"},
	{domain.ErrDuplicateOrder, http.StatusConflict, "conflict"},
	{domain.ErrDuplicateOrderNumber, http.StatusConflict, "conflict"},
	{domain.ErrCouponExists, http.StatusConflict, "already_exists"},
	{domain.ErrDuplicateReview, http.StatusConflict, "already_exists"},
	{domain.ErrInvalidQuantity, http.StatusUnprocessableEntity, "validation_error"},
	{domain.ErrInvalidProduct, http.StatusUnprocessableEntity, "validation_error"},
	{domain.ErrInvalidCouponDefinition, http.StatusUnprocessableEntity, "validation_error"},
	{domain.ErrInvalidAddress, http.StatusUnprocessableEntity, "validation_error"},
	{domain.ErrInvalidPaymentMethod, http.StatusUnprocessableEntity, "validation_error"},
	{domain.ErrInvalidRefundAmount, http.StatusUnprocessableEntity, "validation_error"},
	{domain.ErrInvalidRating, http.StatusUnprocessableEntity, "validation_error"},
	{circuitbreaker.ErrUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
}

// HandleError пишет ответ для ошибки сервиса. op попадает только в лог.
func HandleError(c *gin.Context, err error, op string) {
	log := logger.FromContext(c.Request.Context())

	if err == nil {
		log.Error().Str("op", op).Msg("HandleError вызван без ошибки")
		c.JSON(http.StatusInternalServerError, internalError())
		return
	}

	for _, m := range errorMapping {
		if !errors.Is(err, m.target) {
			continue
		}
		if m.status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("op", op).Msg("Внешний сервис недоступен")
		} else {
			log.Debug().Err(err).Str("op", op).Int("status", m.status).Msg("Запрос отклонён")
		}
		c.JSON(m.status, ErrorResponse{
			Error:   m.code,
			Message: err.Error(),
			Details: errorDetails(err),
		})
		return
	}

	log.Error().Err(err).Str("op", op).Msg("Внутренняя ошибка")
	c.JSON(http.StatusInternalServerError, internalError())
}

// errorDetails раскрывает поля типизированных доменных ошибок.
func errorDetails(err error) map[string]any {
	var (
		inventory   *domain.InsufficientInventoryError
		unavailable *domain.ProductUnavailableError
		coupon      *domain.InvalidCouponError
		transition  *domain.StateTransitionError
	)
	switch {
	case errors.As(err, &inventory):
		return map[string]any{
			"product_id": inventory.ProductID,
			"name":       inventory.Name,
			"requested":  inventory.Requested,
			"available":  inventory.Available,
		}
	case errors.As(err, &unavailable):
		return map[string]any{"product_id": unavailable.ProductID}
	case errors.As(err, &coupon):
		return map[string]any{"code": coupon.Code, "reason": string(coupon.Reason)}
	case errors.As(err, &transition):
		d := map[string]any{"operation": transition.Operation, "from": transition.From}
		if transition.To != "" {
			d["to"] = transition.To
		}
		return d
	}
	return nil
}

func internalError() ErrorResponse {
	return ErrorResponse{Error: "internal_error", Message: "Внутренняя ошибка сервера"}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: message})
}
