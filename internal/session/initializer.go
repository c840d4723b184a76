// internal/session/initializer.go
package session

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/drift-terminal/internal/drift"
	"github.com/rovshanmuradov/drift-terminal/internal/logger"
	"github.com/rovshanmuradov/drift-terminal/internal/wallet"
)

// faucetInstructions is shown when an interactive session cannot pay fees.
const faucetInstructions = "Insufficient SOL balance. Please get SOL from the Devnet faucet:\n" +
	"1. Copy your wallet address\n" +
	"2. Visit https://solfaucet.com\n" +
	"3. Paste your address and request SOL\n" +
	"4. Wait for the transaction to confirm\n" +
	"5. Try connecting again"

// Initializer builds and subscribes a protocol client for one session:
// an ephemeral keypair in view-only mode, the configured signer otherwise.
type Initializer struct {
	newClient  func(w *wallet.Wallet) drift.Client
	getBalance func(ctx context.Context, pubkey solana.PublicKey) (uint64, error)
	signer     *wallet.Wallet
	minSol     float64
	logger     *logger.Logger
}

// NewInitializer wires the production client factory over a shared RPC
// connection. signer may be nil when only view-only sessions are possible.
func NewInitializer(conn *drift.Connection, signer *wallet.Wallet, minSol float64, log *logger.Logger) *Initializer {
	return &Initializer{
		newClient: func(w *wallet.Wallet) drift.Client {
			return drift.NewProgramClient(conn, w, log.Logger)
		},
		getBalance: conn.GetBalance,
		signer:     signer,
		minSol:     minSol,
		logger:     log,
	}
}

// Initialize constructs and subscribes a client bound to ownerKey. In
// view-only mode the balance check and account provisioning are skipped
// entirely: no transaction will ever be signed with the throwaway key.
// On failure no client is installed anywhere; session state is untouched.
func (i *Initializer) Initialize(ctx context.Context, ownerKey solana.PublicKey, viewOnly bool) (drift.Client, error) {
	sessionWallet, err := i.sessionWallet(viewOnly)
	if err != nil {
		return nil, err
	}

	client := i.newClient(sessionWallet)
	if err := client.Subscribe(ctx); err != nil {
		return nil, &drift.InitializationError{
			Reason:        "Failed to initialize Drift client. Please check your connection and try again",
			OriginalError: err,
		}
	}

	if viewOnly {
		i.logger.WithUser(ownerKey.String()).Info("View-only session ready")
		return client, nil
	}

	if err := i.prepareInteractive(ctx, client, ownerKey); err != nil {
		_ = client.Unsubscribe()
		return nil, err
	}

	i.logger.WithUser(ownerKey.String()).Info("Interactive session ready")
	return client, nil
}

func (i *Initializer) sessionWallet(viewOnly bool) (*wallet.Wallet, error) {
	if viewOnly {
		w, err := wallet.NewEphemeral()
		if err != nil {
			return nil, &drift.InitializationError{Reason: "failed to create view-only keypair", OriginalError: err}
		}
		return w, nil
	}
	if i.signer == nil {
		return nil, &drift.InitializationError{Reason: "no signing wallet configured for interactive mode"}
	}
	return i.signer, nil
}

// prepareInteractive runs the interactive-mode checks: signer binding, fee
// balance of the signing wallet (it pays for every transaction, whatever key
// the caller supplied), then user-account provisioning when the authority
// owns no subaccount yet. There is no idempotency guard here: two racing
// initializations can both observe zero subaccounts and both submit a
// creation transaction.
func (i *Initializer) prepareInteractive(ctx context.Context, client drift.Client, ownerKey solana.PublicKey) error {
	if !ownerKey.Equals(i.signer.PublicKey) {
		return &drift.InitializationError{
			Reason: "Connected wallet does not match the configured signing wallet",
		}
	}

	lamports, err := i.getBalance(ctx, i.signer.PublicKey)
	if err != nil {
		return &drift.InitializationError{Reason: "failed to check SOL balance", OriginalError: err}
	}
	if float64(lamports)/float64(solana.LAMPORTS_PER_SOL) < i.minSol {
		return &drift.InitializationError{Reason: faucetInstructions}
	}

	accounts, err := client.GetAccountsForAuthority(ctx, i.signer.PublicKey)
	if err != nil {
		return &drift.InitializationError{Reason: "failed to query user accounts", OriginalError: err}
	}
	if len(accounts) > 0 {
		return nil
	}

	sig, err := client.InitializeUserAccount(ctx)
	if err != nil {
		return &drift.InitializationError{Reason: "Failed to initialize user account", OriginalError: err}
	}
	i.logger.WithTransaction(sig.String()).Info(
		fmt.Sprintf("Provisioned user account for %s", i.signer.PublicKey.String()))
	return nil
}
