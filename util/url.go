package util

import (
	"net/url"
	"strconv"
)

func GetQueryParam(u *url.URL, key string, defaultValue string) string {
	value := u.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	return value
}

func GetQueryParamInt(u *url.URL, key string, defaultValue int) int {
	value := u.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return i
}
