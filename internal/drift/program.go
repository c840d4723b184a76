// internal/drift/program.go
package drift

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/drift-terminal/internal/wallet"
)

// spotMarketMints maps spot market indices to token mints (devnet).
var spotMarketMints = map[uint16]solana.PublicKey{
	0: solana.MustPublicKeyFromBase58("8zGuJQqwhZafTah7Uc7Z4tXRnguqkn5KLFAP8oV6PHe2"), // USDC
}

const subscribeMaxElapsed = 15 * time.Second

// ProgramClient is the production Client over a live RPC connection.
type ProgramClient struct {
	StandardConverter

	conn         *Connection
	wallet       *wallet.Wallet
	subAccountID uint16
	logger       *zap.Logger

	mu         sync.Mutex
	subscribed bool
}

var _ Client = (*ProgramClient)(nil)

// NewProgramClient binds a client to a wallet. The wallet is the transaction
// signer; view-only sessions pass an ephemeral one.
func NewProgramClient(conn *Connection, w *wallet.Wallet, logger *zap.Logger) *ProgramClient {
	return &ProgramClient{
		conn:   conn,
		wallet: w,
		logger: logger.Named("drift"),
	}
}

// Subscribe validates the connection with retries. A context cancellation is
// terminal, transient network errors are retried.
func (c *ProgramClient) Subscribe(ctx context.Context) error {
	op := func() (struct{}, error) {
		if err := c.conn.Validate(ctx); err != nil {
			if ctx.Err() != nil {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(subscribeMaxElapsed),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	c.mu.Lock()
	c.subscribed = true
	c.mu.Unlock()

	c.logger.Info("Client subscribed", zap.String("wallet", c.wallet.String()))
	return nil
}

// Unsubscribe releases the subscription. Safe to call twice.
func (c *ProgramClient) Unsubscribe() error {
	c.mu.Lock()
	c.subscribed = false
	c.mu.Unlock()
	return nil
}

func (c *ProgramClient) checkSubscribed() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.subscribed {
		return ErrNotSubscribed
	}
	return nil
}

// SetSubAccount switches the target subaccount for signing operations.
func (c *ProgramClient) SetSubAccount(id uint16) {
	c.mu.Lock()
	c.subAccountID = id
	c.mu.Unlock()
}

func (c *ProgramClient) currentSubAccount() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subAccountID
}

// Connection exposes the underlying RPC connection for balance checks.
func (c *ProgramClient) Connection() *Connection {
	return c.conn
}

// GetAccountsForAuthority fetches and decodes every user account owned by the
// authority, ordered by subaccount id. Undecodable accounts are skipped.
func (c *ProgramClient) GetAccountsForAuthority(ctx context.Context, authority solana.PublicKey) ([]RawAccount, error) {
	if err := c.checkSubscribed(); err != nil {
		return nil, err
	}

	result, err := c.conn.GetProgramAccounts(ctx, ProgramID, &rpc.GetProgramAccountsOpts{
		Encoding: solana.EncodingBase64,
		Filters: []rpc.RPCFilter{
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: 0, Bytes: solana.Base58(userAccountDiscriminator)}},
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: userAuthorityOffset, Bytes: solana.Base58(authority.Bytes())}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user accounts: %w", err)
	}

	accounts := make([]RawAccount, 0, len(result))
	for _, keyed := range result {
		if keyed.Account == nil || keyed.Account.Data == nil {
			continue
		}
		account, err := decodeUserAccount(keyed.Account.Data.GetBinary())
		if err != nil {
			c.logger.Warn("Skipping undecodable user account",
				zap.String("pubkey", keyed.Pubkey.String()),
				zap.Error(err))
			continue
		}
		accounts = append(accounts, account)
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].SubAccountID < accounts[j].SubAccountID
	})
	return accounts, nil
}

// InitializeUserAccount provisions subaccount 0 for the signing wallet.
func (c *ProgramClient) InitializeUserAccount(ctx context.Context) (solana.Signature, error) {
	if err := c.checkSubscribed(); err != nil {
		return solana.Signature{}, err
	}

	instruction, err := buildInitializeUserInstruction(c.wallet)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.submitInstructions(ctx, []solana.Instruction{instruction})
}

// GetAssociatedTokenAccount resolves the signer's ATA for a spot market and
// verifies it exists on chain.
func (c *ProgramClient) GetAssociatedTokenAccount(ctx context.Context, marketIndex uint16) (solana.PublicKey, error) {
	if err := c.checkSubscribed(); err != nil {
		return solana.PublicKey{}, err
	}

	mint, ok := spotMarketMints[marketIndex]
	if !ok {
		return solana.PublicKey{}, fmt.Errorf("no mint configured for spot market %d", marketIndex)
	}

	ata, err := c.wallet.GetATA(mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token account: %w", err)
	}

	if _, err := c.conn.GetAccountInfo(ctx, ata); err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return solana.PublicKey{}, ErrTokenAccountNotFound
		}
		return solana.PublicKey{}, err
	}
	return ata, nil
}

// Deposit moves quote tokens into the subaccount's collateral.
func (c *ProgramClient) Deposit(ctx context.Context, amount uint64, marketIndex uint16, tokenAccount solana.PublicKey) (solana.Signature, error) {
	if err := c.checkSubscribed(); err != nil {
		return solana.Signature{}, err
	}

	instruction, err := buildDepositInstruction(c.wallet, c.currentSubAccount(), amount, marketIndex, tokenAccount)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.submitInstructions(ctx, []solana.Instruction{instruction})
}

// Withdraw moves quote tokens out of the subaccount's collateral.
func (c *ProgramClient) Withdraw(ctx context.Context, amount uint64, marketIndex uint16, tokenAccount solana.PublicKey) (solana.Signature, error) {
	if err := c.checkSubscribed(); err != nil {
		return solana.Signature{}, err
	}

	instruction, err := buildWithdrawInstruction(c.wallet, c.currentSubAccount(), amount, marketIndex, tokenAccount)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.submitInstructions(ctx, []solana.Instruction{instruction})
}

// PlaceOrder submits a single perp order.
func (c *ProgramClient) PlaceOrder(ctx context.Context, params OrderParams) (solana.Signature, error) {
	if err := c.checkSubscribed(); err != nil {
		return solana.Signature{}, err
	}

	instruction, err := buildPlacePerpOrderInstruction(c.wallet, c.currentSubAccount(), params)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.submitInstructions(ctx, []solana.Instruction{instruction})
}

// submitInstructions строит, подписывает и отправляет транзакцию.
func (c *ProgramClient) submitInstructions(ctx context.Context, instructions []solana.Instruction) (solana.Signature, error) {
	op := func() (solana.Signature, error) {
		blockhash, err := c.conn.GetLatestBlockhash(ctx)
		if err != nil {
			return solana.Signature{}, backoff.Permanent(fmt.Errorf("failed to get recent blockhash: %w", err))
		}

		tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(c.wallet.PublicKey))
		if err != nil {
			return solana.Signature{}, backoff.Permanent(fmt.Errorf("failed to create transaction: %w", err))
		}

		if err := c.wallet.SignTransaction(tx); err != nil {
			return solana.Signature{}, backoff.Permanent(fmt.Errorf("failed to sign transaction: %w", err))
		}

		sig, err := c.conn.SendTransaction(ctx, tx)
		if err != nil {
			if strings.Contains(err.Error(), "BlockhashNotFound") {
				return solana.Signature{}, err // Временная ошибка для retry
			}
			return solana.Signature{}, backoff.Permanent(err)
		}
		return sig, nil
	}

	return backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(subscribeMaxElapsed),
	)
}
