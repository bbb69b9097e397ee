package main

import (
	"io"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/model"
	"github.com/nomadmarket/nomadledger/services/settlement"
	"github.com/nomadmarket/nomadledger/services/wallet"
	"github.com/nomadmarket/nomadledger/settings"
	"github.com/nomadmarket/nomadledger/stores/ledger"
	"github.com/nomadmarket/nomadledger/stores/ledger/factory"
	"github.com/nomadmarket/nomadledger/ulogger"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newApp() *cli.App {
	return &cli.App{
		Name:  "ledgercli",
		Usage: "administer the nomadledger store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "dotenv file loaded before the settings are read",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "ledger store URL, overrides the ledgerstore setting",
			},
			&cli.StringFlag{
				Name:  "data-folder",
				Usage: "folder of sqlite store files, overrides the dataFolder setting",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "DEBUG, INFO, WARN or ERROR",
				Value: "ERROR",
			},
		},
		Before: loadEnv,
		Commands: []*cli.Command{
			{
				Name:  "seed",
				Usage: "create accounts, each listing some items",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "accounts", Value: 2, Usage: "number of accounts"},
					&cli.IntFlag{Name: "items", Value: 1, Usage: "items listed by each account"},
					&cli.StringFlag{Name: "balance", Usage: "opening balance, defaults to ledger_initialBalance"},
					&cli.StringFlag{Name: "price", Value: "10", Usage: "price of every item"},
				},
				Action: seed,
			},
			{
				Name:  "mint",
				Usage: "mint the token of an item",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "item", Required: true},
					&cli.Int64Flag{Name: "as", Required: true, Usage: "acting account id"},
				},
				Action: mint,
			},
			{
				Name:  "purchase",
				Usage: "buy an item",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "item", Required: true},
					&cli.Int64Flag{Name: "buyer", Required: true},
					&cli.Int64Flag{Name: "expected-seller", Usage: "fail if the item is no longer owned by this account"},
				},
				Action: purchase,
			},
			{
				Name:  "wallet",
				Usage: "print the wallet of an account",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "account", Required: true},
				},
				Action: showWallet,
			},
		},
	}
}

// loadEnv loads the dotenv file if it exists. Variables already set in the
// environment take precedence.
func loadEnv(c *cli.Context) error {
	envFile := c.String("env")

	if _, err := os.Stat(envFile); err != nil {
		if c.IsSet("env") {
			return errors.NewConfigurationError("env file %s not found", envFile, err)
		}

		return nil
	}

	if err := godotenv.Load(envFile); err != nil {
		return errors.NewConfigurationError("failed to load %s", envFile, err)
	}

	return nil
}

type session struct {
	settings *settings.Settings
	logger   ulogger.Logger
	store    ledger.Store
}

func openSession(c *cli.Context) (*session, error) {
	tSettings := settings.NewSettings()

	if c.IsSet("store") {
		storeURL, err := url.Parse(c.String("store"))
		if err != nil {
			return nil, errors.NewConfigurationError("invalid store URL %s", c.String("store"), err)
		}

		tSettings.Ledger.StoreURL = storeURL
	}

	if c.IsSet("data-folder") {
		tSettings.DataFolder = c.String("data-folder")
	}

	logger := ulogger.New("ledgercli", ulogger.WithLevel(c.String("log-level")), ulogger.WithWriter(c.App.ErrWriter))

	store, err := factory.NewStore(c.Context, logger, tSettings)
	if err != nil {
		return nil, err
	}

	return &session{
		settings: tSettings,
		logger:   logger,
		store:    store,
	}, nil
}

func (s *session) Close() {
	_ = s.store.Close()
}

func (s *session) engine() *settlement.Engine {
	return settlement.New(s.logger, s.settings, s.store, settlement.NoopPublisher{})
}

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.NewProcessingError("failed to encode output", err)
	}

	_, err = w.Write(append(b, '\n'))

	return err
}

type seedResult struct {
	Accounts []*model.Account `json:"accounts"`
	Items    []*model.Item    `json:"items"`
}

func seed(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	balance := s.settings.Ledger.InitialBalance

	if c.IsSet("balance") {
		if balance, err = decimal.NewFromString(c.String("balance")); err != nil {
			return errors.NewInvalidArgumentError("invalid balance %q", c.String("balance"), err)
		}
	}

	price, err := decimal.NewFromString(c.String("price"))
	if err != nil {
		return errors.NewInvalidArgumentError("invalid price %q", c.String("price"), err)
	}

	ctx := c.Context

	result := seedResult{
		Accounts: []*model.Account{},
		Items:    []*model.Item{},
	}

	for i := 1; i <= c.Int("accounts"); i++ {
		account, err := s.store.CreateAccount(ctx, "account "+strconv.Itoa(i), "", balance)
		if err != nil {
			return err
		}

		result.Accounts = append(result.Accounts, account)

		for j := 1; j <= c.Int("items"); j++ {
			item, err := s.store.CreateItem(ctx, account.ID, "item "+strconv.Itoa(i)+"."+strconv.Itoa(j), "", price)
			if err != nil {
				return err
			}

			result.Items = append(result.Items, item)
		}
	}

	return printJSON(c.App.Writer, result)
}

func mint(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	token, err := s.engine().Mint(c.Context, c.Int64("item"), c.Int64("as"))
	if err != nil {
		return err
	}

	return printJSON(c.App.Writer, token)
}

func purchase(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	var opts []settlement.PurchaseOption
	if c.IsSet("expected-seller") {
		opts = append(opts, settlement.WithExpectedSeller(c.Int64("expected-seller")))
	}

	entry, err := s.engine().Purchase(c.Context, c.Int64("item"), c.Int64("buyer"), opts...)
	if err != nil {
		return err
	}

	return printJSON(c.App.Writer, entry)
}

// showWallet reads the wallet as the account itself; the CLI runs with
// direct store access, so there is no other caller to authorize.
func showWallet(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	accountID := c.Int64("account")

	w, err := wallet.New(s.logger, s.store).GetWallet(c.Context, accountID, accountID)
	if err != nil {
		return err
	}

	return printJSON(c.App.Writer, w)
}
