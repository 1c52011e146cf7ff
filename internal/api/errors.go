package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/oakmart/orderd/internal/domain/coupon"
	"github.com/oakmart/orderd/internal/domain/order"
	"github.com/oakmart/orderd/internal/domain/product"
)

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, status, e)
}

// writeError maps a domain error onto an HTTP status and JSON error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidQty   *order.InvalidQuantityError
		notFound     *order.ProductNotFoundError
		noStock      *order.InsufficientStockError
		badCoupon    *order.InvalidCouponError
		belowMinimum *order.MinimumOrderNotMetError
		cannotCancel *order.CannotCancelError
	)

	switch {
	case errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrEmptyCart),
		errors.As(err, &invalidQty):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrUnauthorized):
		writeErrorMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.As(err, &notFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.As(err, &cannotCancel),
		errors.Is(err, order.ErrDuplicateRequest),
		errors.Is(err, product.ErrVersionConflict),
		errors.Is(err, coupon.ErrAlreadyUsed):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.As(err, &noStock),
		errors.As(err, &badCoupon),
		errors.As(err, &belowMinimum):
		writeErrorMessage(w, http.StatusUnprocessableEntity, err.Error())
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
