// Package time handles timestamp columns that are TEXT in sqlite and TIMESTAMPTZ in postgres.
package time

import (
	"database/sql/driver"
	"time"

	"github.com/nomadmarket/nomadledger/errors"
)

const SQLiteTimestampFormat = "2006-01-02 15:04:05"

type CustomTime struct {
	time.Time
}

// Scan implements the sql.Scanner interface.
func (ct *CustomTime) Scan(value interface{}) error {
	switch v := value.(type) {
	case time.Time:
		ct.Time = v.UTC()
		return nil
	case []byte:
		return ct.parse(string(v))
	case string:
		return ct.parse(v)
	case nil:
		ct.Time = time.Time{}
		return nil
	}

	return errors.NewProcessingError("unsupported type: %T", value)
}

func (ct *CustomTime) parse(v string) error {
	t, err := time.Parse(SQLiteTimestampFormat, v)
	if err != nil {
		// values written by the driver itself carry a zone and fractional seconds
		if t, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return errors.NewProcessingError("invalid timestamp %q", v, err)
		}
	}

	ct.Time = t.UTC()

	return nil
}

// Value implements the driver.Valuer interface.
func (ct CustomTime) Value() (driver.Value, error) {
	return ct.Time, nil
}
