package sql

import (
	"context"
	"fmt"

	"github.com/nomadmarket/nomadledger/util/usql"
)

func createPostgresSchema(ctx context.Context, db *usql.DB) error {
	if _, err := db.ExecContext(ctx, `
      CREATE TABLE IF NOT EXISTS accounts (
	     id              BIGSERIAL PRIMARY KEY
	    ,display_name    TEXT NOT NULL
	    ,email           TEXT
	    ,deposit_address TEXT NOT NULL
	    ,balance         NUMERIC(18,6) NOT NULL DEFAULT 100 CHECK (balance >= 0)
	    ,created_at      TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	  );
	`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create accounts table - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS ux_accounts_deposit_address ON accounts (deposit_address);`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create ux_accounts_deposit_address index - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `
      CREATE TABLE IF NOT EXISTS items (
	     id               BIGSERIAL PRIMARY KEY
	    ,owner_account_id BIGINT NOT NULL REFERENCES accounts(id)
	    ,title            TEXT NOT NULL
	    ,description      TEXT
	    ,price            NUMERIC(18,6) NOT NULL CHECK (price >= 0)
	    ,created_at       TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	  );
	`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create items table - [%+v]", err)
	}

	// owner_account_id is NULL only for tokens written before ownership was tracked,
	// the item owner is the seller of record for those.
	// The account references are checked at commit, so minting inside a purchase
	// takes no lock on the seller row before the accounts are locked in id order.
	if _, err := db.ExecContext(ctx, `
      CREATE TABLE IF NOT EXISTS tokens (
	     id               BIGSERIAL PRIMARY KEY
	    ,item_id          BIGINT NOT NULL REFERENCES items(id)
	    ,owner_account_id BIGINT CONSTRAINT tokens_owner_account_id_fkey REFERENCES accounts(id) DEFERRABLE INITIALLY DEFERRED
	    ,minted_by        BIGINT CONSTRAINT tokens_minted_by_fkey REFERENCES accounts(id) DEFERRABLE INITIALLY DEFERRED
	    ,minted_at        TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	  );
	`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create tokens table - [%+v]", err)
	}

	// tables created before the references were deferred
	for _, constraint := range []string{"tokens_owner_account_id_fkey", "tokens_minted_by_fkey"} {
		if _, err := db.ExecContext(ctx, `ALTER TABLE tokens ALTER CONSTRAINT `+constraint+` DEFERRABLE INITIALLY DEFERRED;`); err != nil {
			_ = db.Close()
			return fmt.Errorf("could not defer %s - [%+v]", constraint, err)
		}
	}

	if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS ux_tokens_item_id ON tokens (item_id);`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create ux_tokens_item_id index - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_tokens_owner_account_id ON tokens (owner_account_id);`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create idx_tokens_owner_account_id index - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `
      CREATE TABLE IF NOT EXISTS ledger_entries (
	     id         BIGSERIAL PRIMARY KEY
	    ,token_id   BIGINT NOT NULL REFERENCES tokens(id)
	    ,seller_id  BIGINT NOT NULL REFERENCES accounts(id)
	    ,buyer_id   BIGINT NOT NULL REFERENCES accounts(id)
	    ,amount     NUMERIC(18,6) NOT NULL CHECK (amount > 0)
	    ,reference  TEXT NOT NULL
	    ,created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	    ,CHECK (seller_id <> buyer_id)
	  );
	`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create ledger_entries table - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_entries_reference ON ledger_entries (reference);`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create ux_ledger_entries_reference index - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_ledger_entries_buyer_id ON ledger_entries (buyer_id);`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create idx_ledger_entries_buyer_id index - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_ledger_entries_seller_id ON ledger_entries (seller_id);`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create idx_ledger_entries_seller_id index - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `
      CREATE TABLE IF NOT EXISTS notifications (
	     id         BIGSERIAL PRIMARY KEY
	    ,account_id BIGINT NOT NULL REFERENCES accounts(id)
	    ,message    TEXT NOT NULL
	    ,created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	  );
	`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create notifications table - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_notifications_account_id ON notifications (account_id);`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create idx_notifications_account_id index - [%+v]", err)
	}

	return nil
}

// Money columns are TEXT in sqlite so that decimal values round trip exactly,
// NUMERIC affinity would turn them into floats.
func createSqliteSchema(ctx context.Context, db *usql.DB) error {
	if _, err := db.ExecContext(ctx, `
      CREATE TABLE IF NOT EXISTS accounts (
	     id              INTEGER PRIMARY KEY AUTOINCREMENT
	    ,display_name    TEXT NOT NULL
	    ,email           TEXT
	    ,deposit_address TEXT NOT NULL
	    ,balance         TEXT NOT NULL DEFAULT '100'
	    ,created_at      TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	  );
	`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create accounts table - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS ux_accounts_deposit_address ON accounts (deposit_address);`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create ux_accounts_deposit_address index - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `
      CREATE TABLE IF NOT EXISTS items (
	     id               INTEGER PRIMARY KEY AUTOINCREMENT
	    ,owner_account_id INTEGER NOT NULL REFERENCES accounts(id)
	    ,title            TEXT NOT NULL
	    ,description      TEXT
	    ,price            TEXT NOT NULL
	    ,created_at       TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	  );
	`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create items table - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `
      CREATE TABLE IF NOT EXISTS tokens (
	     id               INTEGER PRIMARY KEY AUTOINCREMENT
	    ,item_id          INTEGER NOT NULL REFERENCES items(id)
	    ,owner_account_id INTEGER REFERENCES accounts(id)
	    ,minted_by        INTEGER REFERENCES accounts(id)
	    ,minted_at        TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	  );
	`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create tokens table - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS ux_tokens_item_id ON tokens (item_id);`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create ux_tokens_item_id index - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_tokens_owner_account_id ON tokens (owner_account_id);`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create idx_tokens_owner_account_id index - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `
      CREATE TABLE IF NOT EXISTS ledger_entries (
	     id         INTEGER PRIMARY KEY AUTOINCREMENT
	    ,token_id   INTEGER NOT NULL REFERENCES tokens(id)
	    ,seller_id  INTEGER NOT NULL REFERENCES accounts(id)
	    ,buyer_id   INTEGER NOT NULL REFERENCES accounts(id)
	    ,amount     TEXT NOT NULL
	    ,reference  TEXT NOT NULL
	    ,created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	    ,CHECK (seller_id <> buyer_id)
	  );
	`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create ledger_entries table - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_entries_reference ON ledger_entries (reference);`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create ux_ledger_entries_reference index - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_ledger_entries_buyer_id ON ledger_entries (buyer_id);`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create idx_ledger_entries_buyer_id index - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_ledger_entries_seller_id ON ledger_entries (seller_id);`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create idx_ledger_entries_seller_id index - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `
      CREATE TABLE IF NOT EXISTS notifications (
	     id         INTEGER PRIMARY KEY AUTOINCREMENT
	    ,account_id INTEGER NOT NULL REFERENCES accounts(id)
	    ,message    TEXT NOT NULL
	    ,created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	  );
	`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create notifications table - [%+v]", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_notifications_account_id ON notifications (account_id);`); err != nil {
		_ = db.Close()
		return fmt.Errorf("could not create idx_notifications_account_id index - [%+v]", err)
	}

	return nil
}
