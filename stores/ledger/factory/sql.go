package factory

import (
	"context"
	"net/url"

	"github.com/nomadmarket/nomadledger/settings"
	"github.com/nomadmarket/nomadledger/stores/ledger"
	"github.com/nomadmarket/nomadledger/stores/ledger/sql"
	"github.com/nomadmarket/nomadledger/ulogger"
)

func init() {
	newSQLStore := func(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, url *url.URL) (ledger.Store, error) {
		return sql.New(ctx, logger, tSettings, url)
	}

	availableDatabases["postgres"] = newSQLStore
	availableDatabases["sqlite"] = newSQLStore
	availableDatabases["sqlitememory"] = newSQLStore
}
