package market

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/nomadmarket/nomadledger/errors"
	"github.com/prometheus/client_golang/prometheus"
)

func int64Param(c echo.Context, name string) (int64, error) {
	value := c.Param(name)

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewInvalidArgumentError("invalid %s: %q", name, value)
	}

	return id, nil
}

// fail counts the failure under the error code and sends the error body.
func (h *HTTP) fail(c echo.Context, counter *prometheus.CounterVec, err error) error {
	counter.WithLabelValues(errors.CodeOf(err).String(), strconv.Itoa(statusFromError(err))).Inc()

	return h.sendError(c, err)
}
