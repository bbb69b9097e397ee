package settings

import (
	"net/url"
	"strconv"
	"time"

	"github.com/ordishs/gocore"
	"github.com/shopspring/decimal"
)

func getString(key, defaultValue string) string {
	value, found := gocore.Config().Get(key)
	if !found {
		return defaultValue
	}

	return value
}

func getInt(key string, defaultValue int) int {
	value, found := gocore.Config().GetInt(key)
	if !found {
		return defaultValue
	}

	return value
}

// getURL returns nil when the key resolves to an empty or unparsable value.
func getURL(key, defaultValue string) *url.URL {
	value := getString(key, defaultValue)
	if value == "" {
		return nil
	}

	u, err := url.Parse(value)
	if err != nil {
		return nil
	}

	return u
}

func getFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(getString(key, strconv.FormatFloat(defaultValue, 'f', -1, 64)), 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getBool(key string, defaultValue bool) bool {
	return gocore.Config().GetBool(key, defaultValue)
}

func getMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getInt(key, defaultValue)) * time.Millisecond
}

func getDecimal(key, defaultValue string) decimal.Decimal {
	value, err := decimal.NewFromString(getString(key, defaultValue))
	if err != nil {
		panic(err)
	}

	return value
}
