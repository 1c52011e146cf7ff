package api

import (
	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	ordersCreated   metric.Int64Counter
	ordersCancelled metric.Int64Counter
}

func newMetrics(meter metric.Meter) (metrics, error) {
	var (
		m   metrics
		err error
	)
	if m.ordersCreated, err = meter.Int64Counter("orders.created",
		metric.WithDescription("Orders successfully created"),
	); err != nil {
		return m, errors.Wrap(err, "orders.created counter")
	}
	if m.ordersCancelled, err = meter.Int64Counter("orders.cancelled",
		metric.WithDescription("Orders successfully cancelled"),
	); err != nil {
		return m, errors.Wrap(err, "orders.cancelled counter")
	}
	return m, nil
}
