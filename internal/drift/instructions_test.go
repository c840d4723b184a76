package drift

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/drift-terminal/internal/wallet"
)

func TestEncodeOrderParams(t *testing.T) {
	params := OrderParams{
		OrderType:         OrderTypeTriggerMarket,
		MarketIndex:       1,
		Direction:         DirectionShort,
		BaseAssetAmount:   2_000_000_000,
		Price:             0,
		ReduceOnly:        true,
		TriggerPrice:      150_000_000,
		TriggerCondition:  TriggerAbove,
		AuctionDuration:   60,
		AuctionStartPrice: 100_000_000,
		AuctionEndPrice:   101_000_000,
		MaxTS:             1_700_000_100,
	}

	data := encodeOrderParams(nil, params)
	require.Len(t, data, 62)

	assert.Equal(t, byte(OrderTypeTriggerMarket), data[0])
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[1:3]))
	assert.Equal(t, byte(DirectionShort), data[3])
	assert.Equal(t, uint64(2_000_000_000), binary.LittleEndian.Uint64(data[4:12]))
	assert.Equal(t, uint64(0), binary.LittleEndian.Uint64(data[12:20]))
	assert.Equal(t, byte(1), data[20]) // reduceOnly
	assert.Equal(t, uint64(150_000_000), binary.LittleEndian.Uint64(data[21:29]))
	assert.Equal(t, byte(TriggerAbove), data[29])
	assert.Equal(t, uint64(60), binary.LittleEndian.Uint64(data[30:38]))
	assert.Equal(t, uint64(100_000_000), binary.LittleEndian.Uint64(data[38:46]))
	assert.Equal(t, uint64(101_000_000), binary.LittleEndian.Uint64(data[46:54]))
	assert.Equal(t, uint64(1_700_000_100), binary.LittleEndian.Uint64(data[54:62]))
}

func TestAnchorDiscriminators(t *testing.T) {
	// Дискриминаторы детерминированы: sha256("global:"+name)[:8].
	assert.Len(t, placePerpOrderDiscriminator, 8)
	assert.NotEqual(t, depositDiscriminator, withdrawDiscriminator)
	assert.Equal(t, anchorDiscriminator("deposit"), depositDiscriminator)
}

func TestUserPDAVariesWithSubAccount(t *testing.T) {
	w, err := wallet.NewEphemeral()
	require.NoError(t, err)

	pda0, err := userPDA(w.PublicKey, 0)
	require.NoError(t, err)
	pda1, err := userPDA(w.PublicKey, 1)
	require.NoError(t, err)
	assert.NotEqual(t, pda0, pda1)
}

func TestBuildTransferInstructionData(t *testing.T) {
	w, err := wallet.NewEphemeral()
	require.NoError(t, err)
	tokenAccount, err := w.GetATA(spotMarketMints[0])
	require.NoError(t, err)

	ins, err := buildDepositInstruction(w, 0, 25_500_000, 0, tokenAccount)
	require.NoError(t, err)

	assert.Equal(t, ProgramID, ins.ProgramID())
	data, err := ins.Data()
	require.NoError(t, err)
	require.Len(t, data, 8+2+8+1)
	assert.Equal(t, depositDiscriminator, data[:8])
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(data[8:10]))
	assert.Equal(t, uint64(25_500_000), binary.LittleEndian.Uint64(data[10:18]))
	assert.Equal(t, byte(0), data[18]) // reduceOnly всегда 0 для переводов

	accounts := ins.Accounts()
	require.Len(t, accounts, 7)
	assert.True(t, accounts[3].IsSigner)
}

func TestBuildInitializeUserInstruction(t *testing.T) {
	w, err := wallet.NewEphemeral()
	require.NoError(t, err)

	ins, err := buildInitializeUserInstruction(w)
	require.NoError(t, err)

	data, err := ins.Data()
	require.NoError(t, err)
	// discriminator + subAccountId u16 + имя 32 нулевых байта
	require.Len(t, data, 8+2+32)
	assert.Equal(t, initializeUserDiscriminator, data[:8])
}
