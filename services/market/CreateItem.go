package market

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/util"
	"github.com/shopspring/decimal"
)

type createItemRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

// CreateItem lists an item owned by the caller.
func (h *HTTP) CreateItem() func(c echo.Context) error {
	return func(c echo.Context) error {
		start, stat, ctx := util.NewStatFromContext(c.Request().Context(), "CreateItem_http", MarketStat)
		defer func() {
			stat.AddTime(start)
		}()

		req := &createItemRequest{}
		if err := c.Bind(req); err != nil {
			return h.fail(c, prometheusMarketHTTPCreateItem, errors.NewInvalidArgumentError("invalid request body", err))
		}

		item, err := h.store.CreateItem(ctx, callerID(c), req.Title, req.Description, req.Price)
		if err != nil {
			return h.fail(c, prometheusMarketHTTPCreateItem, err)
		}

		prometheusMarketHTTPCreateItem.WithLabelValues("OK", "201").Inc()

		return c.JSON(http.StatusCreated, item)
	}
}
