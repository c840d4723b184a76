// internal/drift/connection.go
package drift

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxRetries     = 3
	retryDelay     = 500 * time.Millisecond
	defaultTimeout = 10 * time.Second
)

// endpoint is one RPC node with liveness state and rolling metrics.
type endpoint struct {
	client *rpc.Client
	url    string

	mu       sync.Mutex
	active   bool
	requests uint64
	failures uint64
	latency  time.Duration
}

func (e *endpoint) isActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *endpoint) setActive(active bool) {
	e.mu.Lock()
	e.active = active
	e.mu.Unlock()
}

func (e *endpoint) record(ok bool, took time.Duration) {
	e.mu.Lock()
	e.requests++
	if !ok {
		e.failures++
	}
	e.latency = took
	e.mu.Unlock()
}

// Connection is a failover RPC connection over one or more Solana nodes.
// Calls rotate across active endpoints; a failing endpoint is taken out of
// rotation until the next validation pass.
type Connection struct {
	endpoints  []*endpoint
	commitment rpc.CommitmentType
	logger     *zap.Logger

	mu        sync.Mutex
	currIndex int
}

// NewConnection создает подключение к списку RPC узлов.
func NewConnection(rpcURLs []string, commitment rpc.CommitmentType, logger *zap.Logger) (*Connection, error) {
	if len(rpcURLs) == 0 {
		return nil, errors.New("empty RPC URL list")
	}

	var endpoints []*endpoint
	for _, urlStr := range rpcURLs {
		if _, err := url.Parse(urlStr); err != nil {
			logger.Warn("Invalid RPC URL", zap.String("url", urlStr), zap.Error(err))
			continue
		}
		endpoints = append(endpoints, &endpoint{
			client: rpc.New(urlStr),
			url:    urlStr,
			active: true,
		})
	}

	if len(endpoints) == 0 {
		return nil, errors.New("no valid RPC URLs provided")
	}

	return &Connection{
		endpoints:  endpoints,
		commitment: commitment,
		logger:     logger.Named("connection"),
	}, nil
}

// Validate проверяет доступность всех узлов. Хотя бы один должен ответить.
func (c *Connection) Validate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for _, ep := range c.endpoints {
		ep := ep
		g.Go(func() error {
			var lastErr error
			for attempt := 0; attempt < maxRetries; attempt++ {
				start := time.Now()
				if err := c.testEndpoint(ctx, ep); err != nil {
					lastErr = err
					ep.record(false, time.Since(start))
					select {
					case <-time.After(retryDelay):
					case <-ctx.Done():
						// Отмена до успешного ответа: узел не проверен.
						ep.setActive(false)
						c.logger.Warn("RPC endpoint validation aborted",
							zap.String("url", ep.url),
							zap.Error(ctx.Err()))
						return nil
					}
					continue
				}
				ep.record(true, time.Since(start))
				return nil
			}
			ep.setActive(false)
			c.logger.Warn("RPC endpoint unavailable", zap.String("url", ep.url), zap.Error(lastErr))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if !c.hasActiveEndpoints() {
		return errors.New("no active RPC connections available")
	}
	return nil
}

func (c *Connection) testEndpoint(ctx context.Context, ep *endpoint) error {
	// Версия узла как лёгкий запрос
	version, err := ep.client.GetVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}
	if _, err := ep.client.GetLatestBlockhash(ctx, c.commitment); err != nil {
		return fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	c.logger.Debug("Successfully connected to RPC",
		zap.String("url", ep.url),
		zap.String("solana_core", version.SolanaCore))
	return nil
}

// GetBalance возвращает баланс аккаунта в лампортах.
func (c *Connection) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		ep := c.nextEndpoint()
		if ep == nil {
			return 0, errors.New("no active RPC clients available")
		}

		start := time.Now()
		result, err := ep.client.GetBalance(ctx, pubkey, c.commitment)
		ep.record(err == nil, time.Since(start))

		if err != nil {
			lastErr = err
			ep.setActive(false)
			continue
		}
		return result.Value, nil
	}
	return 0, fmt.Errorf("failed to get balance after %d attempts: %w", maxRetries, lastErr)
}

// GetLatestBlockhash получает последний blockhash.
func (c *Connection) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		ep := c.nextEndpoint()
		if ep == nil {
			return solana.Hash{}, errors.New("no active RPC clients available")
		}

		start := time.Now()
		result, err := ep.client.GetLatestBlockhash(ctx, c.commitment)
		ep.record(err == nil, time.Since(start))

		if err != nil {
			lastErr = err
			ep.setActive(false)
			continue
		}
		return result.Value.Blockhash, nil
	}
	return solana.Hash{}, fmt.Errorf("failed to get recent blockhash after %d attempts: %w", maxRetries, lastErr)
}

// GetAccountInfo получает информацию об аккаунте.
func (c *Connection) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		ep := c.nextEndpoint()
		if ep == nil {
			return nil, errors.New("no active RPC clients available")
		}

		start := time.Now()
		result, err := ep.client.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: c.commitment,
		})
		ep.record(err == nil, time.Since(start))

		if err != nil {
			lastErr = err
			if errors.Is(err, rpc.ErrNotFound) {
				return nil, err
			}
			ep.setActive(false)
			continue
		}
		return result, nil
	}
	return nil, fmt.Errorf("failed to get account info after %d attempts: %w", maxRetries, lastErr)
}

// GetProgramAccounts возвращает аккаунты программы по фильтрам.
func (c *Connection) GetProgramAccounts(
	ctx context.Context,
	program solana.PublicKey,
	opts *rpc.GetProgramAccountsOpts,
) (rpc.GetProgramAccountsResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		ep := c.nextEndpoint()
		if ep == nil {
			return nil, errors.New("no active RPC clients available")
		}

		start := time.Now()
		result, err := ep.client.GetProgramAccountsWithOpts(ctx, program, opts)
		ep.record(err == nil, time.Since(start))

		if err != nil {
			lastErr = err
			ep.setActive(false)
			continue
		}
		return result, nil
	}
	return nil, fmt.Errorf("failed to get program accounts after %d attempts: %w", maxRetries, lastErr)
}

// SendTransaction отправляет транзакцию.
func (c *Connection) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		ep := c.nextEndpoint()
		if ep == nil {
			return solana.Signature{}, errors.New("no active RPC clients available")
		}

		start := time.Now()
		sig, err := ep.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: c.commitment,
		})
		ep.record(err == nil, time.Since(start))

		if err != nil {
			lastErr = err
			// Ошибка программы не связана с узлом, не выключаем endpoint.
			return solana.Signature{}, err
		}
		return sig, nil
	}
	return solana.Signature{}, fmt.Errorf("failed to send transaction after %d attempts: %w", maxRetries, lastErr)
}

func (c *Connection) hasActiveEndpoints() bool {
	for _, ep := range c.endpoints {
		if ep.isActive() {
			return true
		}
	}
	return false
}

func (c *Connection) nextEndpoint() *endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	initialIndex := c.currIndex
	for {
		c.currIndex = (c.currIndex + 1) % len(c.endpoints)
		if c.endpoints[c.currIndex].isActive() {
			return c.endpoints[c.currIndex]
		}
		if c.currIndex == initialIndex {
			return nil
		}
	}
}
