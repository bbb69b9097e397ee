package main

import (
	"context"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/nomadmarket/nomadledger/daemon"
	"github.com/nomadmarket/nomadledger/settings"
	"github.com/nomadmarket/nomadledger/ulogger"
	"github.com/ordishs/gocore"
)

const progname = "nomadledger"

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version string
	commit  string
)

func init() {
	gocore.SetInfo(progname, version, commit)
}

func main() {
	tSettings := settings.NewSettings()

	logger := ulogger.New(progname, ulogger.WithLevel(tSettings.LogLevel), ulogger.WithPretty(tSettings.PrettyLogs))

	logger.Infof("%s %s (%s) starting, ledger store %s", progname, version, commit, redacted(tSettings.Ledger.StoreURL))
	logger.Debugf("settings\n%s", gocore.Config().Stats())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	d := daemon.New(daemon.WithLoggerFactory(func(serviceName string) ulogger.Logger {
		return logger.New(serviceName, ulogger.WithLevel(tSettings.LogLevel), ulogger.WithPretty(tSettings.PrettyLogs))
	}))

	if err := d.Run(ctx, tSettings); err != nil {
		logger.Errorf("%s stopped: %v", progname, err)
		cancel()
		os.Exit(2)
	}

	logger.Infof("%s shut down", progname)
}

func redacted(u *url.URL) string {
	if u == nil {
		return "<none>"
	}

	return u.Redacted()
}
