// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/drift-terminal/internal/account"
	"github.com/rovshanmuradov/drift-terminal/internal/drift"
	"github.com/rovshanmuradov/drift-terminal/internal/logger"
	"github.com/rovshanmuradov/drift-terminal/internal/market"
	"github.com/rovshanmuradov/drift-terminal/internal/orders"
	"github.com/rovshanmuradov/drift-terminal/internal/session"
	"github.com/rovshanmuradov/drift-terminal/internal/wallet"
)

// readOnlyMessage is returned when a trading operation hits a view-only
// session.
const readOnlyMessage = "You are viewing this account in read-only mode. " +
	"To place trades, you need to connect with the wallet that owns this account."

const shutdownTimeout = 5 * time.Second

// SessionInitializer is the session-setup dependency of the HTTP layer.
type SessionInitializer interface {
	Initialize(ctx context.Context, ownerKey solana.PublicKey, viewOnly bool) (drift.Client, error)
}

// Server exposes the terminal's operations over HTTP.
type Server struct {
	initializer SessionInitializer
	store       *session.Store
	aggregator  *account.Aggregator
	submitter   *orders.Submitter
	demoDefault bool
	logger      *zap.Logger
	engine      *gin.Engine
}

type Config struct {
	Initializer SessionInitializer
	Store       *session.Store
	DemoDefault bool
	Logger      *logger.Logger
}

func New(cfg Config) *Server {
	s := &Server{
		initializer: cfg.Initializer,
		store:       cfg.Store,
		aggregator:  account.NewAggregator(cfg.Logger.Logger),
		submitter:   orders.NewSubmitter(cfg.Logger),
		demoDefault: cfg.DemoDefault,
		logger:      cfg.Logger.WithComponent("server"),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	api := engine.Group("/api")
	api.GET("/markets", s.handleMarkets)
	api.POST("/lookup", s.handleLookup)
	api.POST("/connect", s.handleConnect)
	api.GET("/portfolio", s.handlePortfolio)
	api.POST("/select", s.handleSelect)
	api.POST("/orders", s.handleOrders)
	api.POST("/transfer", s.handleTransfer)

	s.engine = engine
	return s
}

// Run blocks serving HTTP until the listener fails or ctx is cancelled, then
// drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("HTTP server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

type marketEntry struct {
	market.PerpMarket
	Price market.DemoPrice `json:"price"`
}

func (s *Server) handleMarkets(c *gin.Context) {
	entries := make([]marketEntry, 0, 3)
	for _, m := range market.List() {
		price, _ := market.Price(m.Symbol)
		entries = append(entries, marketEntry{PerpMarket: m, Price: price})
	}
	c.JSON(http.StatusOK, gin.H{"markets": entries})
}

type lookupRequest struct {
	Address string `json:"address"`
}

type sessionResponse struct {
	Accounts []account.SubaccountRecord `json:"accounts"`
	Summary  account.PortfolioSummary   `json:"summary"`
}

// handleLookup starts a view-only session for an arbitrary address. No
// accounts for the authority is a user-facing error on this path.
func (s *Server) handleLookup(c *gin.Context) {
	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ownerKey, err := wallet.ParseAddress(req.Address)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": wallet.ErrInvalidAddress.Error()})
		return
	}

	s.startSession(c, ownerKey, true)
}

// handleConnect starts an interactive session for the configured signing
// wallet's address. An empty account list renders as an empty dashboard.
func (s *Server) handleConnect(c *gin.Context) {
	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ownerKey, err := wallet.ParseAddress(req.Address)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": wallet.ErrInvalidAddress.Error()})
		return
	}

	s.startSession(c, ownerKey, false)
}

func (s *Server) startSession(c *gin.Context, ownerKey solana.PublicKey, viewOnly bool) {
	ctx := c.Request.Context()

	client, err := s.initializer.Initialize(ctx, ownerKey, viewOnly)
	if err != nil {
		s.logger.Warn("Session initialization failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	raw, err := client.GetAccountsForAuthority(ctx, ownerKey)
	if err != nil {
		_ = client.Unsubscribe()
		c.JSON(http.StatusBadGateway, gin.H{"error": "Error fetching account data: " + err.Error()})
		return
	}

	records, summary, err := s.aggregator.Aggregate(raw)
	switch {
	case err == nil:
	case err == account.ErrNoAccountsFound && !viewOnly:
		// Own-wallet dashboard: no accounts is a valid empty state.
		records, summary = nil, account.PortfolioSummary{}
	case err == account.ErrNoAccountsFound:
		_ = client.Unsubscribe()
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	default:
		_ = client.Unsubscribe()
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	s.store.Replace(client, records, summary, viewOnly)
	c.JSON(http.StatusOK, sessionResponse{Accounts: records, Summary: summary})
}

func (s *Server) handlePortfolio(c *gin.Context) {
	records, summary := s.store.Records()
	c.JSON(http.StatusOK, sessionResponse{Accounts: records, Summary: summary})
}

type selectRequest struct {
	SubAccountID uint16 `json:"subAccountId"`
}

func (s *Server) handleSelect(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !s.store.Select(req.SubAccountID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "subaccount not loaded"})
		return
	}
	// Дальнейшие операции клиента идут против выбранного сабаккаунта.
	if client := s.store.Client(); client != nil {
		client.SetSubAccount(req.SubAccountID)
	}
	selected, _ := s.store.Selected()
	c.JSON(http.StatusOK, selected)
}

type orderRequest struct {
	orders.FormInput
	Demo *bool `json:"demo"`
}

func (s *Server) handleOrders(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	demo := s.demoDefault
	if req.Demo != nil {
		demo = *req.Demo
	}

	if demo {
		result, err := s.submitter.SubmitDemo(c.Request.Context(), req.FormInput)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	client, ok := s.tradingClient(c)
	if !ok {
		return
	}

	result, err := s.submitter.Submit(c.Request.Context(), client, req.FormInput)
	if err != nil {
		if _, ok := err.(*orders.ValidationError); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "legs": result.Legs})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleTransfer(c *gin.Context) {
	var req orders.TransferInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	client, ok := s.tradingClient(c)
	if !ok {
		return
	}

	result, err := s.submitter.Transfer(c.Request.Context(), client, req)
	if err != nil {
		switch err.(type) {
		case *orders.ValidationError:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case *orders.TransferError:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// tradingClient rejects the request when no interactive session is active.
func (s *Server) tradingClient(c *gin.Context) (drift.Client, bool) {
	client := s.store.Client()
	if client == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no active session"})
		return nil, false
	}
	if s.store.ViewOnly() {
		c.JSON(http.StatusForbidden, gin.H{"error": readOnlyMessage})
		return nil, false
	}
	return client, true
}
