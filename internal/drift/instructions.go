// internal/drift/instructions.go
package drift

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/drift-terminal/internal/wallet"
)

// ProgramID is the protocol program (same address on devnet and mainnet).
var ProgramID = solana.MustPublicKeyFromBase58("dRiftyHA39MWEi3m9aunc5MzRF1JYuBsbn6VPcn33UH")

// anchorDiscriminator derives the 8-byte Anchor instruction discriminator.
func anchorDiscriminator(name string) []byte {
	hash := sha256.Sum256([]byte("global:" + name))
	return hash[:8]
}

var (
	initializeUserDiscriminator = anchorDiscriminator("initialize_user")
	depositDiscriminator        = anchorDiscriminator("deposit")
	withdrawDiscriminator       = anchorDiscriminator("withdraw")
	placePerpOrderDiscriminator = anchorDiscriminator("place_perp_order")
)

// PDA seeds used by the program.
func statePDA() (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress([][]byte{[]byte("drift_state")}, ProgramID)
	return pda, err
}

func userPDA(authority solana.PublicKey, subAccountID uint16) (solana.PublicKey, error) {
	id := make([]byte, 2)
	binary.LittleEndian.PutUint16(id, subAccountID)
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("user"), authority.Bytes(), id},
		ProgramID,
	)
	return pda, err
}

func userStatsPDA(authority solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("user_stats"), authority.Bytes()},
		ProgramID,
	)
	return pda, err
}

func spotMarketVaultPDA(marketIndex uint16) (solana.PublicKey, error) {
	id := make([]byte, 2)
	binary.LittleEndian.PutUint16(id, marketIndex)
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("spot_market_vault"), id},
		ProgramID,
	)
	return pda, err
}

// buildInitializeUserInstruction provisions subaccount 0 for the signer.
func buildInitializeUserInstruction(userWallet *wallet.Wallet) (solana.Instruction, error) {
	state, err := statePDA()
	if err != nil {
		return nil, fmt.Errorf("failed to derive state PDA: %w", err)
	}
	user, err := userPDA(userWallet.PublicKey, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to derive user PDA: %w", err)
	}
	userStats, err := userStatsPDA(userWallet.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive user stats PDA: %w", err)
	}

	// subAccountId (u16) + name ([32]u8, zero padded)
	data := make([]byte, len(initializeUserDiscriminator))
	copy(data, initializeUserDiscriminator)
	id := make([]byte, 2)
	binary.LittleEndian.PutUint16(id, 0)
	data = append(data, id...)
	data = append(data, make([]byte, 32)...)

	// Account list must be in the exact order expected by the program
	insAccounts := []*solana.AccountMeta{
		{PublicKey: user, IsSigner: false, IsWritable: true},
		{PublicKey: userStats, IsSigner: false, IsWritable: true},
		{PublicKey: state, IsSigner: false, IsWritable: true},
		{PublicKey: userWallet.PublicKey, IsSigner: true, IsWritable: false},
		{PublicKey: userWallet.PublicKey, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(ProgramID, insAccounts, data), nil
}

// buildDepositInstruction moves tokens from the signer's token account into
// the market vault.
func buildDepositInstruction(
	userWallet *wallet.Wallet,
	subAccountID uint16,
	amount uint64,
	marketIndex uint16,
	tokenAccount solana.PublicKey,
) (solana.Instruction, error) {
	return buildTransferInstruction(depositDiscriminator, userWallet, subAccountID, amount, marketIndex, tokenAccount)
}

// buildWithdrawInstruction moves tokens from the market vault back to the
// signer's token account.
func buildWithdrawInstruction(
	userWallet *wallet.Wallet,
	subAccountID uint16,
	amount uint64,
	marketIndex uint16,
	tokenAccount solana.PublicKey,
) (solana.Instruction, error) {
	return buildTransferInstruction(withdrawDiscriminator, userWallet, subAccountID, amount, marketIndex, tokenAccount)
}

func buildTransferInstruction(
	discriminator []byte,
	userWallet *wallet.Wallet,
	subAccountID uint16,
	amount uint64,
	marketIndex uint16,
	tokenAccount solana.PublicKey,
) (solana.Instruction, error) {
	state, err := statePDA()
	if err != nil {
		return nil, fmt.Errorf("failed to derive state PDA: %w", err)
	}
	user, err := userPDA(userWallet.PublicKey, subAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive user PDA: %w", err)
	}
	userStats, err := userStatsPDA(userWallet.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive user stats PDA: %w", err)
	}
	vault, err := spotMarketVaultPDA(marketIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to derive vault PDA: %w", err)
	}

	// marketIndex (u16) + amount (u64) + reduceOnly (bool = 0)
	data := make([]byte, len(discriminator))
	copy(data, discriminator)
	idx := make([]byte, 2)
	binary.LittleEndian.PutUint16(idx, marketIndex)
	data = append(data, idx...)
	amountBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(amountBytes, amount)
	data = append(data, amountBytes...)
	data = append(data, 0)

	insAccounts := []*solana.AccountMeta{
		{PublicKey: state, IsSigner: false, IsWritable: false},
		{PublicKey: user, IsSigner: false, IsWritable: true},
		{PublicKey: userStats, IsSigner: false, IsWritable: true},
		{PublicKey: userWallet.PublicKey, IsSigner: true, IsWritable: false},
		{PublicKey: vault, IsSigner: false, IsWritable: true},
		{PublicKey: tokenAccount, IsSigner: false, IsWritable: true},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(ProgramID, insAccounts, data), nil
}

// buildPlacePerpOrderInstruction serializes OrderParams the way the program
// expects: fixed-width little-endian fields in declaration order.
func buildPlacePerpOrderInstruction(
	userWallet *wallet.Wallet,
	subAccountID uint16,
	params OrderParams,
) (solana.Instruction, error) {
	state, err := statePDA()
	if err != nil {
		return nil, fmt.Errorf("failed to derive state PDA: %w", err)
	}
	user, err := userPDA(userWallet.PublicKey, subAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive user PDA: %w", err)
	}

	data := make([]byte, len(placePerpOrderDiscriminator))
	copy(data, placePerpOrderDiscriminator)
	data = encodeOrderParams(data, params)

	insAccounts := []*solana.AccountMeta{
		{PublicKey: state, IsSigner: false, IsWritable: false},
		{PublicKey: user, IsSigner: false, IsWritable: true},
		{PublicKey: userWallet.PublicKey, IsSigner: true, IsWritable: false},
	}

	return solana.NewInstruction(ProgramID, insAccounts, data), nil
}

func encodeOrderParams(data []byte, params OrderParams) []byte {
	data = append(data, byte(params.OrderType))
	data = appendUint16(data, params.MarketIndex)
	data = append(data, byte(params.Direction))
	data = appendUint64(data, params.BaseAssetAmount)
	data = appendUint64(data, params.Price)
	data = appendBool(data, params.ReduceOnly)
	data = appendUint64(data, params.TriggerPrice)
	data = append(data, byte(params.TriggerCondition))
	data = appendUint64(data, params.AuctionDuration)
	data = appendUint64(data, params.AuctionStartPrice)
	data = appendUint64(data, params.AuctionEndPrice)
	data = appendUint64(data, uint64(params.MaxTS))
	return data
}

func appendUint16(data []byte, v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return append(data, b...)
}

func appendUint64(data []byte, v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return append(data, b...)
}

func appendBool(data []byte, v bool) []byte {
	if v {
		return append(data, 1)
	}
	return append(data, 0)
}
