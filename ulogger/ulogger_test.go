package ulogger_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/nomadmarket/nomadledger/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroLoggerJSON(t *testing.T) {
	var buf bytes.Buffer

	logger := ulogger.New("settlement", ulogger.WithWriter(&buf), ulogger.WithPretty(false), ulogger.WithLevel("INFO"))

	logger.Debugf("hidden %d", 1)
	logger.Infof("purchase of item %d settled", 42)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))

	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "settlement", entry["service"])
	assert.Equal(t, "purchase of item 42 settled", entry["message"])
}

func TestZeroLoggerSetLogLevel(t *testing.T) {
	var buf bytes.Buffer

	logger := ulogger.NewZeroLogger("wallet", ulogger.WithWriter(&buf), ulogger.WithPretty(false))

	logger.SetLogLevel("ERROR")
	logger.Warnf("not written")
	assert.Empty(t, buf.String())

	logger.SetLogLevel("debug")
	logger.Debugf("written")
	assert.Contains(t, buf.String(), "written")
}

func TestZeroLoggerNewInheritsWriter(t *testing.T) {
	var buf bytes.Buffer

	parent := ulogger.NewZeroLogger("parent", ulogger.WithWriter(&buf), ulogger.WithPretty(false))
	child := parent.New("child")

	child.Infof("hello")
	assert.Contains(t, buf.String(), `"service":"child"`)

	buf.Reset()

	dup := parent.Duplicate(ulogger.WithLevel("ERROR"))
	dup.Infof("dropped")
	assert.Empty(t, buf.String())
}

func TestZeroLoggerPretty(t *testing.T) {
	var buf bytes.Buffer

	logger := ulogger.NewZeroLogger("market", ulogger.WithWriter(&buf))
	logger.Warnf("slow request")

	out := buf.String()
	assert.Contains(t, out, "market")
	assert.Contains(t, out, "slow request")
	assert.Contains(t, out, "WARN")
}

func TestNoneLogger(t *testing.T) {
	logger := ulogger.New("quiet", ulogger.WithLoggerType("none"))
	_, ok := logger.(ulogger.TestLogger)
	assert.True(t, ok)
}

func TestErrorTestLogger(t *testing.T) {
	logger := ulogger.NewErrorTestLogger(t)

	logger.Infof("ignored")
	logger.Errorf("publish failed: %s", "broker down")

	assert.Equal(t, []string{"publish failed: broker down"}, logger.Errors())
}
