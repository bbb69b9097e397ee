package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/model"
	"github.com/nomadmarket/nomadledger/services/settlement"
	"github.com/nomadmarket/nomadledger/services/wallet"
	"github.com/nomadmarket/nomadledger/settings"
	"github.com/nomadmarket/nomadledger/stores/idempotency"
	"github.com/nomadmarket/nomadledger/stores/idempotency/memory"
	"github.com/nomadmarket/nomadledger/stores/ledger"
	"github.com/nomadmarket/nomadledger/stores/ledger/sql"
	"github.com/nomadmarket/nomadledger/ulogger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	h     *HTTP
	store ledger.Store
}

func newTestServer(t *testing.T, configure ...func(*settings.Settings)) *testServer {
	t.Helper()

	storeURL, err := url.Parse("sqlitememory:///ledger")
	require.NoError(t, err)

	tSettings := settings.NewSettings()
	tSettings.Ledger.Currency = "SOL"
	tSettings.Ledger.InitialBalance = decimal.NewFromInt(100)
	tSettings.Market.APIPrefix = "/api/v1"
	tSettings.Market.IdentityHeader = "X-Account-Id"
	tSettings.Idempotency.TTL = time.Minute

	for _, fn := range configure {
		fn(tSettings)
	}

	store, err := sql.New(context.Background(), ulogger.TestLogger{}, tSettings, storeURL)
	require.NoError(t, err)

	idem := memory.New(time.Minute)

	t.Cleanup(func() {
		_ = idem.Close()
		_ = store.Close()
	})

	engine := settlement.New(ulogger.TestLogger{}, tSettings, store, nil)

	h, err := New(ulogger.TestLogger{}, tSettings, engine, wallet.New(ulogger.TestLogger{}, store), store, idem)
	require.NoError(t, err)

	return &testServer{h: h, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, callerID int64, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if callerID != 0 {
		req.Header.Set("X-Account-Id", strconv.FormatInt(callerID, 10))
	}

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)

	return rec
}

func (s *testServer) account(t *testing.T, name, balance string) *model.Account {
	t.Helper()

	account, err := s.store.CreateAccount(context.Background(), name, "", decimal.RequireFromString(balance))
	require.NoError(t, err)

	return account
}

func (s *testServer) item(t *testing.T, ownerID int64, title, price string) *model.Item {
	t.Helper()

	item, err := s.store.CreateItem(context.Background(), ownerID, title, "", decimal.RequireFromString(price))
	require.NoError(t, err)

	return item
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	return resp
}

func itemPath(itemID int64, action string) string {
	return "/api/v1/items/" + strconv.FormatInt(itemID, 10) + "/" + action
}

func TestHTTP_AliveAndHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/alive", 0, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Market service is alive")

	rec = s.do(t, http.MethodGet, "/health", 0, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "LedgerStore")
	assert.Contains(t, rec.Body.String(), "IdempotencyStore")
}

func TestHTTP_CreateAccount(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/accounts", 0, `{"displayName":"Alice","email":"alice@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var account model.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))

	assert.NotZero(t, account.ID)
	assert.Equal(t, "Alice", account.DisplayName)
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(100)))
	assert.True(t, strings.HasPrefix(account.DepositAddress, "So"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = s.do(t, http.MethodPost, "/api/v1/accounts", 0, `{"displayName":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int32(errors.ERR_INVALID_ARGUMENT), decodeError(t, rec).Code)
}

func TestHTTP_Identity(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/items", 0, `{"title":"Lamp","price":"5"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, int32(errors.ERR_UNAUTHORIZED), decodeError(t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/v1/items", 0, `{"title":"Lamp","price":"5"}`, "X-Account-Id", "abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/wallet/1", -3, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTP_CreateItem(t *testing.T) {
	s := newTestServer(t)
	owner := s.account(t, "owner", "100")

	rec := s.do(t, http.MethodPost, "/api/v1/items", owner.ID, `{"title":"Lamp","description":"brass","price":"12.5"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var item model.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, owner.ID, item.OwnerAccountID)
	assert.True(t, item.Price.Equal(decimal.RequireFromString("12.5")))

	rec = s.do(t, http.MethodPost, "/api/v1/items", owner.ID, `{"title":"Lamp","price":"-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/items", owner.ID, `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_Mint(t *testing.T) {
	s := newTestServer(t)
	owner := s.account(t, "owner", "100")
	other := s.account(t, "other", "100")
	item := s.item(t, owner.ID, "Lamp", "10")

	rec := s.do(t, http.MethodPost, itemPath(item.ID, "mint"), other.ID, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var token model.Token
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	assert.Equal(t, item.ID, token.ItemID)
	assert.Equal(t, owner.ID, token.OwnerAccountID)
	assert.Equal(t, other.ID, token.MintedBy)

	rec = s.do(t, http.MethodPost, itemPath(item.ID, "mint"), owner.ID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, int32(errors.ERR_CONFLICT), decodeError(t, rec).Code)

	rec = s.do(t, http.MethodPost, itemPath(9999, "mint"), owner.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/items/x/mint", owner.ID, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_Purchase(t *testing.T) {
	s := newTestServer(t)
	seller := s.account(t, "seller", "100")
	buyer := s.account(t, "buyer", "10")
	rich := s.account(t, "rich", "1000")
	item := s.item(t, seller.ID, "Lamp", "40")

	t.Run("insufficient funds", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, itemPath(item.ID, "purchase"), buyer.ID, "")
		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
		assert.Equal(t, int32(errors.ERR_INSUFFICIENT_FUNDS), decodeError(t, rec).Code)
	})

	t.Run("self purchase", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, itemPath(item.ID, "purchase"), seller.ID, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, int32(errors.ERR_INVALID_OPERATION), decodeError(t, rec).Code)
	})

	t.Run("success", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, itemPath(item.ID, "purchase"), rich.ID, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var entry model.LedgerEntry
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
		assert.Equal(t, seller.ID, entry.SellerID)
		assert.Equal(t, rich.ID, entry.BuyerID)
		assert.True(t, entry.Amount.Equal(decimal.NewFromInt(40)))
		assert.Len(t, entry.Reference, 64)
	})

	t.Run("expected seller changed", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, itemPath(item.ID, "purchase"), buyer.ID, `{"expectedSellerId":`+strconv.FormatInt(seller.ID, 10)+`}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, itemPath(item.ID, "purchase"), buyer.ID, `{"expectedSellerId":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHTTP_GetWallet(t *testing.T) {
	s := newTestServer(t)
	seller := s.account(t, "seller", "100")
	buyer := s.account(t, "buyer", "100")
	item := s.item(t, seller.ID, "Lamp", "40")

	rec := s.do(t, http.MethodPost, itemPath(item.ID, "purchase"), buyer.ID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v1/wallet/"+strconv.FormatInt(seller.ID, 10), seller.ID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var w model.Wallet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &w))
	assert.True(t, w.Account.Balance.Equal(decimal.NewFromInt(140)))
	assert.Empty(t, w.Tokens)
	require.Len(t, w.LedgerEntries, 1)
	require.Len(t, w.Notifications, 1)
	assert.Equal(t, `Your item "Lamp" was bought for 40 SOL`, w.Notifications[0].Message)

	rec = s.do(t, http.MethodGet, "/api/v1/wallet/"+strconv.FormatInt(seller.ID, 10), buyer.ID, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/wallet/4242", 4242, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_Idempotency(t *testing.T) {
	s := newTestServer(t)
	seller := s.account(t, "seller", "100")
	buyer := s.account(t, "buyer", "100")
	item := s.item(t, seller.ID, "Lamp", "40")

	first := s.do(t, http.MethodPost, itemPath(item.ID, "purchase"), buyer.ID, "", HeaderIdempotencyKey, "order-1")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.Empty(t, first.Header().Get(HeaderIdempotencyHit))

	replay := s.do(t, http.MethodPost, itemPath(item.ID, "purchase"), buyer.ID, "", HeaderIdempotencyKey, "order-1")
	require.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, "true", replay.Header().Get(HeaderIdempotencyHit))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())

	// the purchase ran once
	account, err := s.store.GetAccount(context.Background(), buyer.ID)
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(60)))

	// same key from another caller is a different request
	other := s.account(t, "other", "100")
	rec := s.do(t, http.MethodPost, itemPath(item.ID, "purchase"), other.ID, "", HeaderIdempotencyKey, "order-1")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Header().Get(HeaderIdempotencyHit))

	// a recorded failure is replayed as well
	poor := s.account(t, "poor", "1")
	failed := s.do(t, http.MethodPost, itemPath(item.ID, "purchase"), poor.ID, "", HeaderIdempotencyKey, "order-2")
	require.Equal(t, http.StatusPaymentRequired, failed.Code)

	replayed := s.do(t, http.MethodPost, itemPath(item.ID, "purchase"), poor.ID, "", HeaderIdempotencyKey, "order-2")
	assert.Equal(t, http.StatusPaymentRequired, replayed.Code)
	assert.Equal(t, "true", replayed.Header().Get(HeaderIdempotencyHit))

	rec = s.do(t, http.MethodPost, itemPath(item.ID, "purchase"), poor.ID, "", HeaderIdempotencyKey, strings.Repeat("k", 256))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// gatedIdempotencyStore holds the first Complete until release is closed.
type gatedIdempotencyStore struct {
	idempotency.Store
	once       sync.Once
	completing chan struct{}
	release    chan struct{}
}

func (g *gatedIdempotencyStore) Complete(ctx context.Context, key string, resp *idempotency.Response, ttl time.Duration) error {
	g.once.Do(func() {
		close(g.completing)
		<-g.release
	})

	return g.Store.Complete(ctx, key, resp, ttl)
}

func TestHTTP_IdempotencyInFlight(t *testing.T) {
	s := newTestServer(t)

	gated := &gatedIdempotencyStore{
		Store:      s.h.idempotency,
		completing: make(chan struct{}),
		release:    make(chan struct{}),
	}
	s.h.idempotency = gated

	seller := s.account(t, "seller", "100")
	buyer := s.account(t, "buyer", "100")
	item := s.item(t, seller.ID, "Lamp", "40")

	done := make(chan *httptest.ResponseRecorder, 1)

	go func() {
		done <- s.do(t, http.MethodPost, itemPath(item.ID, "purchase"), buyer.ID, "", HeaderIdempotencyKey, "order-1")
	}()

	<-gated.completing

	inFlight := s.do(t, http.MethodPost, itemPath(item.ID, "purchase"), buyer.ID, "", HeaderIdempotencyKey, "order-1")
	assert.Equal(t, http.StatusConflict, inFlight.Code, inFlight.Body.String())
	assert.Equal(t, int32(errors.ERR_CONFLICT), decodeError(t, inFlight).Code)

	close(gated.release)

	first := <-done
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	replay := s.do(t, http.MethodPost, itemPath(item.ID, "purchase"), buyer.ID, "", HeaderIdempotencyKey, "order-1")
	require.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, "true", replay.Header().Get(HeaderIdempotencyHit))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())
}

func TestHTTP_IdempotencyConcurrent(t *testing.T) {
	s := newTestServer(t)
	owner := s.account(t, "owner", "100")

	const requests = 8

	recs := make([]*httptest.ResponseRecorder, requests)

	var wg sync.WaitGroup

	for i := 0; i < requests; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			recs[i] = s.do(t, http.MethodPost, "/api/v1/items", owner.ID, `{"title":"Lamp","price":"5"}`, HeaderIdempotencyKey, "listing-1")
		}(i)
	}

	wg.Wait()

	var created, replayed, inFlight int

	for _, rec := range recs {
		switch {
		case rec.Code == http.StatusCreated && rec.Header().Get(HeaderIdempotencyHit) == "":
			created++
		case rec.Code == http.StatusCreated:
			replayed++
		case rec.Code == http.StatusConflict:
			inFlight++
		default:
			t.Errorf("unexpected status %d: %s", rec.Code, rec.Body.String())
		}
	}

	assert.Equal(t, 1, created)
	assert.Equal(t, requests, created+replayed+inFlight)
}

func TestHTTP_RateLimit(t *testing.T) {
	s := newTestServer(t, func(tSettings *settings.Settings) {
		tSettings.Market.RateLimit = 1
		tSettings.Market.RateLimitBurst = 2
	})

	alice := s.account(t, "alice", "10")
	bob := s.account(t, "bob", "10")

	for i := 0; i < 2; i++ {
		rec := s.do(t, http.MethodGet, "/api/v1/wallet/"+strconv.FormatInt(alice.ID, 10), alice.ID, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/api/v1/wallet/"+strconv.FormatInt(alice.ID, 10), alice.ID, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, int32(errors.ERR_TOO_MANY_REQUESTS), resp.Code)

	// limits are per caller
	rec = s.do(t, http.MethodGet, "/api/v1/wallet/"+strconv.FormatInt(bob.ID, 10), bob.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{errors.NewNotFoundError("x"), http.StatusNotFound},
		{errors.NewConflictError("x"), http.StatusConflict},
		{errors.NewInvalidOperationError("x"), http.StatusBadRequest},
		{errors.NewInvalidArgumentError("x"), http.StatusBadRequest},
		{errors.NewInsufficientFundsError("x"), http.StatusPaymentRequired},
		{errors.NewForbiddenError("x"), http.StatusForbidden},
		{errors.NewUnauthorizedError("x"), http.StatusUnauthorized},
		{errors.NewStorageError("x"), http.StatusInternalServerError},
		{errors.NewStorageUnavailableError("x"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, statusFromError(tt.err), tt.err.Error())
	}
}

func TestSendError_HidesInternalDetails(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := s.h.e.NewContext(req, rec)

	require.NoError(t, s.h.sendError(c, errors.NewStorageError("connection to 10.0.0.3 refused")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, int32(errors.ERR_STORAGE_ERROR), resp.Code)
	assert.NotContains(t, resp.Err, "10.0.0.3")
}
