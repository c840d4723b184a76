package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/drift-terminal/internal/drift"
	"github.com/rovshanmuradov/drift-terminal/internal/logger"
	"github.com/rovshanmuradov/drift-terminal/internal/session"
)

const testAddress = "arbJEWqPDYfgTFf3CdACQpZrk56tB6z7hPFc6K9KLUi"

// fakeClient отвечает заранее заданными аккаунтами без сети.
type fakeClient struct {
	drift.StandardConverter

	accounts     []drift.RawAccount
	accountsErr  error
	placeErr     error
	unsubscribed int
	subAccount   uint16
}

func (c *fakeClient) Subscribe(ctx context.Context) error { return nil }

func (c *fakeClient) SetSubAccount(id uint16) { c.subAccount = id }

func (c *fakeClient) Unsubscribe() error {
	c.unsubscribed++
	return nil
}

func (c *fakeClient) GetAccountsForAuthority(ctx context.Context, authority solana.PublicKey) ([]drift.RawAccount, error) {
	return c.accounts, c.accountsErr
}

func (c *fakeClient) InitializeUserAccount(ctx context.Context) (solana.Signature, error) {
	return solana.Signature{}, nil
}

func (c *fakeClient) GetAssociatedTokenAccount(ctx context.Context, marketIndex uint16) (solana.PublicKey, error) {
	return solana.NewWallet().PublicKey(), nil
}

func (c *fakeClient) Deposit(ctx context.Context, amount uint64, marketIndex uint16, tokenAccount solana.PublicKey) (solana.Signature, error) {
	return solana.Signature{1}, nil
}

func (c *fakeClient) Withdraw(ctx context.Context, amount uint64, marketIndex uint16, tokenAccount solana.PublicKey) (solana.Signature, error) {
	return solana.Signature{2}, nil
}

func (c *fakeClient) PlaceOrder(ctx context.Context, params drift.OrderParams) (solana.Signature, error) {
	if c.placeErr != nil {
		return solana.Signature{}, c.placeErr
	}
	return solana.Signature{3}, nil
}

// fakeInitializer выдаёт подготовленный клиент или ошибку.
type fakeInitializer struct {
	client *fakeClient
	err    error
}

func (f *fakeInitializer) Initialize(ctx context.Context, ownerKey solana.PublicKey, viewOnly bool) (drift.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

func demoAccount(subID uint16) drift.RawAccount {
	return drift.RawAccount{
		Authority:      solana.MustPublicKeyFromBase58(testAddress),
		SubAccountID:   subID,
		TotalDeposits:  150_500_000,
		TotalWithdraws: 50_250_000,
		PerpPositions:  []drift.RawPosition{},
	}
}

func newTestServer(t *testing.T, init SessionInitializer, demoDefault bool) (*Server, *session.Store) {
	store := session.NewStore()
	s := New(Config{
		Initializer: init,
		Store:       store,
		DemoDefault: demoDefault,
		Logger:      &logger.Logger{Logger: zaptest.NewLogger(t)},
	})
	return s, store
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleMarkets(t *testing.T) {
	s, _ := newTestServer(t, &fakeInitializer{client: &fakeClient{}}, true)

	rec := doJSON(t, s, http.MethodGet, "/api/markets", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Markets []struct {
			Symbol string `json:"symbol"`
			Price  struct {
				Current float64 `json:"current"`
			} `json:"price"`
		} `json:"markets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Markets, 3)
	assert.Equal(t, "SOL-PERP", resp.Markets[0].Symbol)
	assert.Equal(t, 123.45, resp.Markets[0].Price.Current)
}

func TestHandleLookup(t *testing.T) {
	client := &fakeClient{accounts: []drift.RawAccount{demoAccount(0)}}
	s, store := newTestServer(t, &fakeInitializer{client: client}, true)

	rec := doJSON(t, s, http.MethodPost, "/api/lookup", `{"address":"`+testAddress+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Accounts, 1)
	assert.Equal(t, "100.25", resp.Summary.TotalCollateral.String())
	assert.True(t, store.ViewOnly())
}

func TestHandleLookup_InvalidAddress(t *testing.T) {
	s, _ := newTestServer(t, &fakeInitializer{client: &fakeClient{}}, true)

	rec := doJSON(t, s, http.MethodPost, "/api/lookup", `{"address":"not-a-key"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid wallet address format")
}

func TestHandleLookup_NoAccounts(t *testing.T) {
	client := &fakeClient{}
	s, store := newTestServer(t, &fakeInitializer{client: client}, true)

	rec := doJSON(t, s, http.MethodPost, "/api/lookup", `{"address":"`+testAddress+`"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "No Drift Protocol accounts found")
	// Сессия не устанавливается, клиент отписан.
	assert.Nil(t, store.Client())
	assert.Equal(t, 1, client.unsubscribed)
}

func TestHandleConnect_EmptyStateAllowed(t *testing.T) {
	client := &fakeClient{}
	s, store := newTestServer(t, &fakeInitializer{client: client}, true)

	rec := doJSON(t, s, http.MethodPost, "/api/connect", `{"address":"`+testAddress+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Accounts)
	assert.NotNil(t, store.Client())
	assert.False(t, store.ViewOnly())
}

func TestHandleConnect_InitializationFailure(t *testing.T) {
	init := &fakeInitializer{err: &drift.InitializationError{Reason: "Failed to initialize user account"}}
	s, store := newTestServer(t, init, true)

	rec := doJSON(t, s, http.MethodPost, "/api/connect", `{"address":"`+testAddress+`"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Nil(t, store.Client())
}

func TestHandleOrders_DemoDefault(t *testing.T) {
	s, _ := newTestServer(t, &fakeInitializer{client: &fakeClient{}}, true)

	// Демо-режим не требует активной сессии.
	rec := doJSON(t, s, http.MethodPost, "/api/orders",
		`{"market":"BTC-PERP","direction":"short","orderType":"market","size":"2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Successfully placed short market order for 2 BTC-PERP")
}

func TestHandleOrders_ValidationError(t *testing.T) {
	s, _ := newTestServer(t, &fakeInitializer{client: &fakeClient{}}, true)

	rec := doJSON(t, s, http.MethodPost, "/api/orders",
		`{"market":"BTC-PERP","direction":"short","orderType":"limit","size":"2"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "price")
}

func TestHandleOrders_LiveRequiresSession(t *testing.T) {
	s, _ := newTestServer(t, &fakeInitializer{client: &fakeClient{}}, false)

	rec := doJSON(t, s, http.MethodPost, "/api/orders",
		`{"market":"SOL-PERP","direction":"long","orderType":"market","size":"1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleOrders_ViewOnlyForbidden(t *testing.T) {
	client := &fakeClient{accounts: []drift.RawAccount{demoAccount(0)}}
	s, _ := newTestServer(t, &fakeInitializer{client: client}, false)

	rec := doJSON(t, s, http.MethodPost, "/api/lookup", `{"address":"`+testAddress+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/orders",
		`{"market":"SOL-PERP","direction":"long","orderType":"market","size":"1"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "read-only mode")
}

func TestHandleOrders_LiveSubmission(t *testing.T) {
	client := &fakeClient{accounts: []drift.RawAccount{demoAccount(0)}}
	s, _ := newTestServer(t, &fakeInitializer{client: client}, false)

	rec := doJSON(t, s, http.MethodPost, "/api/connect", `{"address":"`+testAddress+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/orders",
		`{"market":"SOL-PERP","direction":"long","orderType":"market","size":"1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Successfully placed long market order for 1 SOL-PERP")
}

func TestHandleOrders_PrimaryRejection(t *testing.T) {
	client := &fakeClient{
		accounts: []drift.RawAccount{demoAccount(0)},
		placeErr: errors.New("custom program error: 0x1773"),
	}
	s, _ := newTestServer(t, &fakeInitializer{client: client}, false)

	rec := doJSON(t, s, http.MethodPost, "/api/connect", `{"address":"`+testAddress+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/orders",
		`{"market":"SOL-PERP","direction":"long","orderType":"market","size":"1"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "primary order rejected")
}

func TestHandleSelect(t *testing.T) {
	client := &fakeClient{accounts: []drift.RawAccount{demoAccount(0), demoAccount(1)}}
	s, _ := newTestServer(t, &fakeInitializer{client: client}, true)

	rec := doJSON(t, s, http.MethodPost, "/api/lookup", `{"address":"`+testAddress+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/select", `{"subAccountId":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	// Выбор перенацеливает клиента: дальнейшие операции идут на сабаккаунт 1.
	assert.Equal(t, uint16(1), client.subAccount)

	rec = doJSON(t, s, http.MethodPost, "/api/select", `{"subAccountId":9}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, uint16(1), client.subAccount)
}

func TestHandleTransfer(t *testing.T) {
	client := &fakeClient{accounts: []drift.RawAccount{demoAccount(0)}}
	s, _ := newTestServer(t, &fakeInitializer{client: client}, false)

	rec := doJSON(t, s, http.MethodPost, "/api/connect", `{"address":"`+testAddress+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/transfer", `{"action":"deposit","amount":"25.5"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Successfully deposited 25.5 USDC")
}

func TestRun_GracefulShutdown(t *testing.T) {
	s, _ := newTestServer(t, &fakeInitializer{client: &fakeClient{}}, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down after context cancellation")
	}
}

func TestHandlePortfolio_EmptyWithoutSession(t *testing.T) {
	s, _ := newTestServer(t, &fakeInitializer{client: &fakeClient{}}, true)

	rec := doJSON(t, s, http.MethodGet, "/api/portfolio", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Accounts)
}
