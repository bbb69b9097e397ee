package market

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/util"
)

type createAccountRequest struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// CreateAccount registers an account with the configured opening balance and a
// fresh deposit address.
func (h *HTTP) CreateAccount() func(c echo.Context) error {
	return func(c echo.Context) error {
		start, stat, ctx := util.NewStatFromContext(c.Request().Context(), "CreateAccount_http", MarketStat)
		defer func() {
			stat.AddTime(start)
		}()

		req := &createAccountRequest{}
		if err := c.Bind(req); err != nil {
			return h.fail(c, prometheusMarketHTTPCreateAccount, errors.NewInvalidArgumentError("invalid request body", err))
		}

		account, err := h.store.CreateAccount(ctx, req.DisplayName, req.Email, h.settings.Ledger.InitialBalance)
		if err != nil {
			return h.fail(c, prometheusMarketHTTPCreateAccount, err)
		}

		h.logger.Infof("[Market_http] CreateAccount %d for %s", account.ID, c.Request().RemoteAddr)

		prometheusMarketHTTPCreateAccount.WithLabelValues("OK", "201").Inc()

		return c.JSON(http.StatusCreated, account)
	}
}
