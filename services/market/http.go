// Package market exposes the settlement engine and the wallet aggregator over HTTP.
//
// The caller identity is taken from a header set by the authenticating proxy in
// front of the service (market_identityHeader, X-Account-Id by default).
package market

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/model"
	"github.com/nomadmarket/nomadledger/services/settlement"
	"github.com/nomadmarket/nomadledger/settings"
	"github.com/nomadmarket/nomadledger/stores/idempotency"
	"github.com/nomadmarket/nomadledger/stores/ledger"
	"github.com/nomadmarket/nomadledger/ulogger"
	"github.com/nomadmarket/nomadledger/util/health"
	"github.com/ordishs/gocore"
)

var MarketStat = gocore.NewStat("Market")

// Settler is the part of the settlement engine the API calls.
type Settler interface {
	Mint(ctx context.Context, itemID, actingAccountID int64) (*model.Token, error)
	Purchase(ctx context.Context, itemID, buyerAccountID int64, opts ...settlement.PurchaseOption) (*model.LedgerEntry, error)
}

type WalletReader interface {
	GetWallet(ctx context.Context, callerAccountID, accountID int64) (*model.Wallet, error)
}

type HTTP struct {
	logger      ulogger.Logger
	settings    *settings.Settings
	engine      Settler
	wallet      WalletReader
	store       ledger.Store
	idempotency idempotency.Store
	e           *echo.Echo
	startTime   time.Time
}

// New creates the HTTP server with all routes and middleware.
//
// API Endpoints:
//
//	Health and Status:
//	- GET /alive: liveness with uptime
//	- GET /health: ledger store and idempotency store status
//
//	Ledger (prefix market_apiPrefix, /api/v1 by default):
//	- POST /accounts: register an account with the opening balance
//	- POST /items: list an item owned by the caller
//	- POST /items/{id}/mint: mint the token of an item
//	- POST /items/{id}/purchase: buy the token of an item
//	- GET /wallet/{accountId}: wallet of the caller
//
// idem may be nil, in which case Idempotency-Key headers are ignored.
func New(logger ulogger.Logger, tSettings *settings.Settings, engine Settler, wallet WalletReader, store ledger.Store, idem idempotency.Store) (*HTTP, error) {
	initPrometheusMetrics()

	if tSettings.Market.IdentityHeader == "" {
		return nil, errors.NewConfigurationError("market_identityHeader must be set")
	}

	e := echo.New()

	if tSettings.Market.EchoDebug {
		e.Debug = true
	}

	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestIDMiddleware())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(origin string) (bool, error) {
			return true, nil
		},
		AllowMethods:     []string{echo.GET, echo.HEAD, echo.POST, echo.OPTIONS},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, tSettings.Market.IdentityHeader, HeaderIdempotencyKey},
		ExposeHeaders:    []string{echo.HeaderContentLength, echo.HeaderContentType, echo.HeaderXRequestID, HeaderIdempotencyHit},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	e.Use(middleware.Gzip())

	if e.Debug {
		e.Use(customLoggerMiddleware(logger))
	}

	h := &HTTP{
		logger:      logger,
		settings:    tSettings,
		engine:      engine,
		wallet:      wallet,
		store:       store,
		idempotency: idem,
		e:           e,
		startTime:   time.Now(),
	}

	e.GET("/alive", func(c echo.Context) error {
		return c.String(http.StatusOK, fmt.Sprintf("Market service is alive. Uptime: %s\n", time.Since(h.startTime)))
	})

	e.GET("/health", func(c echo.Context) error {
		logger.Debugf("[Market_http] Health check")

		status, details, err := h.Health(c.Request().Context(), false)
		if err != nil || status != http.StatusOK {
			return c.String(http.StatusServiceUnavailable, details)
		}

		return c.String(http.StatusOK, details)
	})

	apiPrefix := tSettings.Market.APIPrefix

	var limiter []echo.MiddlewareFunc
	if rl := h.rateLimitMiddleware(); rl != nil {
		limiter = append(limiter, rl)
	}

	publicGroup := e.Group(apiPrefix, append(limiter, h.idempotencyMiddleware())...)
	publicGroup.POST("/accounts", h.CreateAccount())

	apiGroup := e.Group(apiPrefix, append(limiter, h.identityMiddleware(), h.idempotencyMiddleware())...)
	apiGroup.POST("/items", h.CreateItem())
	apiGroup.POST("/items/:id/mint", h.Mint())
	apiGroup.POST("/items/:id/purchase", h.Purchase())
	apiGroup.GET("/wallet/:accountId", h.GetWallet())

	if tSettings.StatsPrefix != "" {
		e.GET(tSettings.StatsPrefix+"stats", AdaptStdHandler(gocore.HandleStats))
		e.GET(tSettings.StatsPrefix+"reset", AdaptStdHandler(gocore.ResetStats))
		e.GET(tSettings.StatsPrefix+"*", AdaptStdHandler(gocore.HandleOther))
	}

	return h, nil
}

func AdaptStdHandler(handler func(w http.ResponseWriter, r *http.Request)) echo.HandlerFunc {
	return func(c echo.Context) error {
		handler(c.Response().Writer, c.Request())
		return nil
	}
}

// Health reports the combined status of the stores the API depends on.
func (h *HTTP) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	checks := []health.Check{
		{Name: "LedgerStore", Check: h.store.Health},
	}

	if h.idempotency != nil {
		checks = append(checks, health.Check{Name: "IdempotencyStore", Check: h.idempotency.Health})
	}

	return health.CheckAll(ctx, checkLiveness, checks)
}

// ServeHTTP lets the server be mounted or exercised without a listener.
func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.e.ServeHTTP(w, r)
}

// Start listens on addr until ctx is cancelled.
func (h *HTTP) Start(ctx context.Context, addr string) error {
	go func() {
		<-ctx.Done()

		h.logger.Infof("[Market] HTTP service shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := h.e.Shutdown(shutdownCtx); err != nil {
			h.logger.Errorf("[Market] HTTP service shutdown error: %s", err)
		}
	}()

	h.logger.Infof("[Market] HTTP listening on %s", addr)

	err := h.e.Start(addr)
	if !errors.Is(err, http.ErrServerClosed) {
		return errors.NewServiceError("[Market] HTTP server failed on %s", addr, err)
	}

	return nil
}

func (h *HTTP) Stop(ctx context.Context) error {
	return h.e.Shutdown(ctx)
}

// Middleware to log HTTP requests using the custom logger
func customLoggerMiddleware(logger ulogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Process the request
			err := next(c)

			// Log response status and duration
			status := c.Response().Status
			duration := time.Since(start)

			if err != nil {
				c.Error(err) // Ensure Echo's default error handling
			}

			logger.Infof("http request: Method=%s, URI=%s, RemoteAddr=%s, RequestID=%s, Status=%d, Duration=%v, err=%v",
				c.Request().Method, c.Request().RequestURI, c.Request().RemoteAddr, c.Response().Header().Get(echo.HeaderXRequestID), status, duration, err)

			return err
		}
	}
}

// AddHTTPHandler serves handler for GET requests on pattern.
func (h *HTTP) AddHTTPHandler(pattern string, handler http.Handler) {
	h.e.GET(pattern, echo.WrapHandler(handler))
}

// ListenerAddr returns the bound address, or nil until Start is listening.
func (h *HTTP) ListenerAddr() net.Addr {
	return h.e.ListenerAddr()
}
