package drift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/drift-terminal/internal/wallet"
)

func TestSetSubAccount(t *testing.T) {
	w, err := wallet.NewEphemeral()
	require.NoError(t, err)
	client := NewProgramClient(nil, w, zaptest.NewLogger(t))

	assert.Equal(t, uint16(0), client.currentSubAccount())
	client.SetSubAccount(3)
	assert.Equal(t, uint16(3), client.currentSubAccount())
}
