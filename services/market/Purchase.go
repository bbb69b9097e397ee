package market

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/services/settlement"
	"github.com/nomadmarket/nomadledger/util"
)

type purchaseRequest struct {
	// ExpectedSellerID, when set, makes the purchase fail with 409 if the token
	// changed hands since the buyer looked at it.
	ExpectedSellerID int64 `json:"expectedSellerId"`
}

// Purchase buys the item in the path for the caller. The body is optional.
func (h *HTTP) Purchase() func(c echo.Context) error {
	return func(c echo.Context) error {
		start, stat, ctx := util.NewStatFromContext(c.Request().Context(), "Purchase_http", MarketStat)
		defer func() {
			stat.AddTime(start)
		}()

		itemID, err := int64Param(c, "id")
		if err != nil {
			return h.fail(c, prometheusMarketHTTPPurchase, err)
		}

		req := &purchaseRequest{}
		if err = (&echo.DefaultBinder{}).BindBody(c, req); err != nil {
			return h.fail(c, prometheusMarketHTTPPurchase, errors.NewInvalidArgumentError("invalid request body", err))
		}

		var opts []settlement.PurchaseOption

		if req.ExpectedSellerID < 0 {
			return h.fail(c, prometheusMarketHTTPPurchase, errors.NewInvalidArgumentError("invalid expectedSellerId: %d", req.ExpectedSellerID))
		}

		if req.ExpectedSellerID > 0 {
			opts = append(opts, settlement.WithExpectedSeller(req.ExpectedSellerID))
		}

		entry, err := h.engine.Purchase(ctx, itemID, callerID(c), opts...)
		if err != nil {
			return h.fail(c, prometheusMarketHTTPPurchase, err)
		}

		prometheusMarketHTTPPurchase.WithLabelValues("OK", "200").Inc()

		return c.JSON(http.StatusOK, entry)
	}
}
