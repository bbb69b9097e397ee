package market

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nomadmarket/nomadledger/util"
)

// Mint creates the token of the item in the path on behalf of the caller.
func (h *HTTP) Mint() func(c echo.Context) error {
	return func(c echo.Context) error {
		start, stat, ctx := util.NewStatFromContext(c.Request().Context(), "Mint_http", MarketStat)
		defer func() {
			stat.AddTime(start)
		}()

		itemID, err := int64Param(c, "id")
		if err != nil {
			return h.fail(c, prometheusMarketHTTPMint, err)
		}

		h.logger.Debugf("[Market_http] Mint item %d by %d", itemID, callerID(c))

		token, err := h.engine.Mint(ctx, itemID, callerID(c))
		if err != nil {
			return h.fail(c, prometheusMarketHTTPMint, err)
		}

		prometheusMarketHTTPMint.WithLabelValues("OK", "201").Inc()

		return c.JSON(http.StatusCreated, token)
	}
}
