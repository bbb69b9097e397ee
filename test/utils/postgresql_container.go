// Package utils holds helpers shared by integration tests.
package utils

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SetupTestPostgresContainer starts a throwaway postgres and returns a ledger store
// URL pointing at it together with the function that removes the container.
func SetupTestPostgresContainer(ctx context.Context) (*url.URL, func() error, error) {
	dbName := "ledger"
	dbUser := "ledger"
	dbPassword := "ledger"

	postgresC, err := postgres.Run(ctx,
		"docker.io/postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second),
			wait.ForListeningPort("5432/tcp")),
	)
	if err != nil {
		return nil, nil, err
	}

	teardown := func() error {
		return postgresC.Terminate(context.Background())
	}

	host, err := postgresC.Host(ctx)
	if err != nil {
		_ = teardown()
		return nil, nil, err
	}

	port, err := postgresC.MappedPort(ctx, "5432")
	if err != nil {
		_ = teardown()
		return nil, nil, err
	}

	storeURL, err := url.Parse(fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPassword, host, port.Port(), dbName))
	if err != nil {
		_ = teardown()
		return nil, nil, err
	}

	return storeURL, teardown, nil
}
