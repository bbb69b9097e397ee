package daemon

import (
	"github.com/nomadmarket/nomadledger/services/settlement"
	"github.com/nomadmarket/nomadledger/ulogger"
)

// Option is a functional option type for configuring the Daemon.
type Option func(*Daemon)

// WithLoggerFactory provides a custom logger factory for the Daemon and its services.
func WithLoggerFactory(factory func(serviceName string) ulogger.Logger) Option {
	return func(d *Daemon) {
		d.loggerFactory = factory
	}
}

// WithPublisher replaces the publisher built from the kafka settings.
func WithPublisher(publisher settlement.Publisher) Option {
	return func(d *Daemon) {
		d.publisher = publisher
	}
}
