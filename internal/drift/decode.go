// internal/drift/decode.go
package drift

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// accountDiscriminator derives the 8-byte Anchor account discriminator.
func accountDiscriminator(name string) []byte {
	hash := sha256.Sum256([]byte("account:" + name))
	return hash[:8]
}

var userAccountDiscriminator = accountDiscriminator("User")

// User account byte layout. Offsets are relative to the start of the account
// data, после 8-байтового дискриминатора.
const (
	userAuthorityOffset     = 8
	userDelegateOffset      = userAuthorityOffset + 32
	userNameOffset          = userDelegateOffset + 32
	userSubAccountIDOffset  = userNameOffset + 32
	userTotalDepositsOffset = userSubAccountIDOffset + 2
	userTotalWithdrawsOff   = userTotalDepositsOffset + 8
	userSettledPerpPnlOff   = userTotalWithdrawsOff + 8
	userOpenOrdersOffset    = userSettledPerpPnlOff + 8
	userStatusOffset        = userOpenOrdersOffset + 1
	userHasOpenOrderOffset  = userStatusOffset + 1
	userMarginEnabledOffset = userHasOpenOrderOffset + 1
	userPositionCountOffset = userMarginEnabledOffset + 1
	userPositionsOffset     = userPositionCountOffset + 1

	perpPositionSize = 67
)

// decodeUserAccount разбирает сырые байты user-аккаунта в RawAccount.
func decodeUserAccount(data []byte) (RawAccount, error) {
	if len(data) < userPositionsOffset {
		return RawAccount{}, fmt.Errorf("user account data too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[:8], userAccountDiscriminator) {
		return RawAccount{}, fmt.Errorf("unexpected account discriminator")
	}

	account := RawAccount{
		Authority:              readPubKey(data, userAuthorityOffset),
		SubAccountID:           readUint16(data, userSubAccountIDOffset),
		TotalDeposits:          readInt64(data, userTotalDepositsOffset),
		TotalWithdraws:         readInt64(data, userTotalWithdrawsOff),
		SettledPerpPnl:         readInt64(data, userSettledPerpPnlOff),
		OpenOrders:             data[userOpenOrdersOffset],
		Status:                 data[userStatusOffset],
		HasOpenOrder:           readBool(data, userHasOpenOrderOffset),
		IsMarginTradingEnabled: readBool(data, userMarginEnabledOffset),
	}
	copy(account.Name[:], data[userNameOffset:userNameOffset+32])

	count := int(data[userPositionCountOffset])
	need := userPositionsOffset + count*perpPositionSize
	if len(data) < need {
		return RawAccount{}, fmt.Errorf("truncated perp positions: have %d bytes, need %d", len(data), need)
	}

	account.PerpPositions = make([]RawPosition, 0, count)
	for i := 0; i < count; i++ {
		offset := userPositionsOffset + i*perpPositionSize
		account.PerpPositions = append(account.PerpPositions, decodePerpPosition(data, offset))
	}

	return account, nil
}

func decodePerpPosition(data []byte, offset int) RawPosition {
	return RawPosition{
		MarketIndex:          readUint16(data, offset),
		BaseAssetAmount:      readInt64(data, offset+2),
		QuoteAssetAmount:     readInt64(data, offset+10),
		QuoteEntryAmount:     readInt64(data, offset+18),
		QuoteBreakEvenAmount: readInt64(data, offset+26),
		SettledPnl:           readInt64(data, offset+34),
		LpShares:             readUint64(data, offset+42),
		OpenBids:             readInt64(data, offset+50),
		OpenAsks:             readInt64(data, offset+58),
		OpenOrders:           data[offset+66],
	}
}

func readUint16(data []byte, offset int) uint16 {
	return binary.LittleEndian.Uint16(data[offset : offset+2])
}

func readUint64(data []byte, offset int) uint64 {
	return binary.LittleEndian.Uint64(data[offset : offset+8])
}

func readInt64(data []byte, offset int) int64 {
	return int64(binary.LittleEndian.Uint64(data[offset : offset+8]))
}

func readBool(data []byte, offset int) bool {
	return data[offset] != 0
}

func readPubKey(data []byte, offset int) solana.PublicKey {
	keyBytes := make([]byte, 32)
	copy(keyBytes, data[offset:offset+32])
	return solana.PublicKeyFromBytes(keyBytes)
}
