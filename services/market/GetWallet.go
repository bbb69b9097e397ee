package market

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nomadmarket/nomadledger/util"
)

// GetWallet returns the wallet of the account in the path. Callers may only
// read their own wallet.
func (h *HTTP) GetWallet() func(c echo.Context) error {
	return func(c echo.Context) error {
		start, stat, ctx := util.NewStatFromContext(c.Request().Context(), "GetWallet_http", MarketStat)
		defer func() {
			stat.AddTime(start)
		}()

		accountID, err := int64Param(c, "accountId")
		if err != nil {
			return h.fail(c, prometheusMarketHTTPGetWallet, err)
		}

		wallet, err := h.wallet.GetWallet(ctx, callerID(c), accountID)
		if err != nil {
			return h.fail(c, prometheusMarketHTTPGetWallet, err)
		}

		prometheusMarketHTTPGetWallet.WithLabelValues("OK", "200").Inc()

		return c.JSON(http.StatusOK, wallet)
	}
}
