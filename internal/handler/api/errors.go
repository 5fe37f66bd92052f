package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"storefront/internal/domain/order"
	"storefront/internal/handler/httperr"
	"storefront/internal/handler/middleware"
	"storefront/internal/pkg/errs"
	"storefront/internal/usecase/commands"
	"storefront/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type stockDetail struct {
	SKU       string `json:"sku"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

type transitionDetail struct {
	Current string `json:"current"`
	Target  string `json:"target"`
}

// abortWithUsecaseError maps use case errors onto the response envelope.
func abortWithUsecaseError(c *gin.Context, err error) {
	var stockErr *commands.InsufficientStockError
	if errors.As(err, &stockErr) {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Insufficient stock", stockDetail{
			SKU:       stockErr.SKU,
			Available: stockErr.Available,
			Requested: stockErr.Requested,
		})
		return
	}

	var transitionErr *order.InvalidStateTransitionError
	if errors.As(err, &transitionErr) {
		msg := fmt.Sprintf("Only pending orders can be cancelled (current status: %s)", transitionErr.Current)
		httperr.AbortWithError(c, http.StatusBadRequest, err, msg, transitionDetail{
			Current: transitionErr.Current.String(),
			Target:  transitionErr.Target.String(),
		})
		return
	}

	switch {
	case errs.Is(err, commands.ErrOrderNotFound), errs.Is(err, queries.ErrOrderNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "Order not found", nil)
	case errs.Is(err, commands.ErrProductNotFound), errs.Is(err, queries.ErrProductNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "Product not found", nil)
	case errs.Is(err, commands.ErrVariantNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "Variant not found", nil)
	case errs.Is(err, commands.ErrCartItemNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "Cart item not found", nil)
	case errs.Is(err, commands.ErrEmptyCart):
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Cart is empty", nil)
	case errs.Is(err, commands.ErrInvalidStatus):
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid order status", nil)
	case errs.Is(err, commands.ErrInvalidQuantity):
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Quantity must be at least 1", nil)
	case errs.Is(err, queries.ErrInvalidCursor):
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid cursor", nil)
	case errs.Is(err, commands.ErrDomainValidation):
		httperr.AbortWithError(c, http.StatusBadRequest, err, err.Error(), nil)
	case errs.Is(err, commands.ErrStockConflict):
		httperr.AbortWithError(c, http.StatusConflict, err, "Stock changed during checkout, please retry", nil)
	case errs.Is(err, commands.ErrDuplicateSKU):
		httperr.AbortWithError(c, http.StatusConflict, err, "SKU already exists", nil)
	default:
		slog.Error("request failed",
			"path", c.FullPath(),
			"request_id", middleware.GetRequestID(c),
			"error", err.Error(),
			"stack", errs.ExtractStackLines(err, 8))
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
	}
}

// abortWithCheckoutError reports catalog lookups that fail during checkout as
// a bad cart rather than a missing resource.
func abortWithCheckoutError(c *gin.Context, err error) {
	switch {
	case errs.Is(err, commands.ErrProductNotFound):
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Product in cart no longer exists", nil)
	case errs.Is(err, commands.ErrVariantNotFound):
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Variant in cart no longer exists", nil)
	default:
		abortWithUsecaseError(c, err)
	}
}
