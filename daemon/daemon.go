// Package daemon wires the ledger store, the settlement engine, the wallet
// aggregator and the HTTP API together and runs them until the context ends.
package daemon

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/services/market"
	"github.com/nomadmarket/nomadledger/services/settlement"
	"github.com/nomadmarket/nomadledger/services/wallet"
	"github.com/nomadmarket/nomadledger/settings"
	idempotencyfactory "github.com/nomadmarket/nomadledger/stores/idempotency/factory"
	ledgerfactory "github.com/nomadmarket/nomadledger/stores/ledger/factory"
	"github.com/nomadmarket/nomadledger/ulogger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

type Daemon struct {
	loggerFactory func(serviceName string) ulogger.Logger
	publisher     settlement.Publisher

	mu   sync.RWMutex
	addr net.Addr
}

func New(opts ...Option) *Daemon {
	d := &Daemon{
		loggerFactory: func(serviceName string) ulogger.Logger {
			return ulogger.New(serviceName)
		},
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Addr is the address the HTTP API listens on, nil before it is ready.
func (d *Daemon) Addr() net.Addr {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.addr
}

// Run blocks until ctx is cancelled or a service fails. readyCh, if given, is
// closed once the HTTP API accepts connections.
func (d *Daemon) Run(ctx context.Context, tSettings *settings.Settings, readyCh ...chan struct{}) error {
	logger := d.loggerFactory("Daemon")

	store, err := ledgerfactory.NewStore(ctx, d.loggerFactory("LedgerStore"), tSettings)
	if err != nil {
		return errors.NewServiceError("failed to open ledger store", err)
	}

	defer func() {
		if err := store.Close(); err != nil {
			logger.Errorf("error closing ledger store: %v", err)
		}
	}()

	idem, err := idempotencyfactory.NewStore(d.loggerFactory("Idempotency"), tSettings)
	if err != nil {
		return errors.NewServiceError("failed to open idempotency store", err)
	}

	if idem != nil {
		defer func() {
			_ = idem.Close()
		}()
	}

	publisher := d.publisher
	if publisher == nil {
		if publisher, err = settlement.NewPublisher(d.loggerFactory("Publisher"), tSettings); err != nil {
			return errors.NewServiceError("failed to create settlement publisher", err)
		}
	}

	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Errorf("error closing settlement publisher: %v", err)
		}
	}()

	engine := settlement.New(d.loggerFactory("Settlement"), tSettings, store, publisher)
	aggregator := wallet.New(d.loggerFactory("Wallet"), store)

	h, err := market.New(d.loggerFactory("Market"), tSettings, engine, aggregator, store, idem)
	if err != nil {
		return err
	}

	if tSettings.PrometheusEndpoint != "" {
		logger.Infof("Serving prometheus metrics on %s", tSettings.PrometheusEndpoint)
		h.AddHTTPHandler(tSettings.PrometheusEndpoint, promhttp.Handler())
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return h.Start(gCtx, tSettings.Market.HTTPListenAddress)
	})

	g.Go(func() error {
		d.waitForListener(gCtx, h, readyCh)
		return nil
	})

	err = g.Wait()

	logger.Infof("ledger daemon stopped")

	return err
}

func (d *Daemon) waitForListener(ctx context.Context, h *market.HTTP, readyCh []chan struct{}) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if addr := h.ListenerAddr(); addr != nil {
			d.mu.Lock()
			d.addr = addr
			d.mu.Unlock()

			for _, ch := range readyCh {
				close(ch)
			}

			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
