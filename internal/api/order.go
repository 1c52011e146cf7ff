package api

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/oakmart/orderd/internal/domain/order"
)

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	req, err := decodeCreateRequest(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}

	o, err := h.orders.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(attribute.Int64("order.id", o.ID))
	h.metrics.ordersCreated.Add(r.Context(), 1,
		metric.WithAttributes(attribute.Bool("from_cart", false)))

	e := &jx.Encoder{}
	encodeOrder(e, o)
	writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) createOrderFromCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	req, err := decodeCreateFromCartRequest(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}

	o, err := h.orders.CreateFromCart(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(attribute.Int64("order.id", o.ID))
	h.metrics.ordersCreated.Add(r.Context(), 1,
		metric.WithAttributes(attribute.Bool("from_cart", true)))

	e := &jx.Encoder{}
	encodeOrder(e, o)
	writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := order.ListQuery{Status: r.URL.Query().Get("status")}
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "page must be an integer")
			return
		}
		q.Page = n
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		q.Limit = n
	}

	page, err := h.orders.List(r.Context(), userID, q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	e := &jx.Encoder{}
	encodePage(e, page)
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "order id must be an integer")
		return
	}

	o, err := h.orders.Get(r.Context(), userID, orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	e := &jx.Encoder{}
	encodeOrder(e, o)
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "order id must be an integer")
		return
	}

	reason, err := decodeCancelRequest(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}

	o, err := h.orders.Cancel(r.Context(), userID, orderID, reason)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.metrics.ordersCancelled.Add(r.Context(), 1)

	e := &jx.Encoder{}
	encodeOrder(e, o)
	writeJSON(w, http.StatusOK, e)
}
