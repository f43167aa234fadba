package wallet

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "default.keystore")

	w, created, err := LoadOrCreate(path, "pass", keystore.LightScryptN, keystore.LightScryptP)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, common.Address{}, w.Address())

	again, created, err := LoadOrCreate(path, "pass", keystore.LightScryptN, keystore.LightScryptP)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, w.Address(), again.Address())
}

func TestLoadWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.keystore")
	_, err := Create(path, "pass", keystore.LightScryptN, keystore.LightScryptP)
	require.NoError(t, err)

	_, err = Load(path, "wrong")
	assert.Error(t, err)

	_, _, err = LoadOrCreate(path, "wrong", keystore.LightScryptN, keystore.LightScryptP)
	assert.Error(t, err)
}

func TestSignTx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.keystore")
	w, err := Create(path, "pass", keystore.LightScryptN, keystore.LightScryptP)
	require.NoError(t, err)

	to := common.HexToAddress("0xdef1c0ded9bec7f1a1670819833240f027b25eff")
	chainID := big.NewInt(1)
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    7,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      21000,
		GasPrice: big.NewInt(1e9),
	})

	signed, err := w.SignTx(tx, chainID)
	require.NoError(t, err)

	sender, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), sender)
}
