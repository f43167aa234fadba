// Package wallet holds the signing key, decrypted from a passphrase
// protected keystore file.
package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// Wallet signs transactions for one account
type Wallet struct {
	address common.Address
	key     *ecdsa.PrivateKey
}

// FromKey wraps an already decrypted private key
func FromKey(key *ecdsa.PrivateKey) *Wallet {
	return &Wallet{
		address: crypto.PubkeyToAddress(key.PublicKey),
		key:     key,
	}
}

// Load decrypts the keystore file at path
func Load(path, passphrase string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}

	key, err := keystore.DecryptKey(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keystore %s: %w", path, err)
	}

	return &Wallet{address: key.Address, key: key.PrivateKey}, nil
}

// LoadOrCreate loads the keystore at path, generating and saving a new key
// when the file does not exist. created reports whether a key was generated.
func LoadOrCreate(path, passphrase string, scryptN, scryptP int) (w *Wallet, created bool, err error) {
	w, err = Load(path, passphrase)
	if err == nil {
		return w, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, err
	}

	w, err = Create(path, passphrase, scryptN, scryptP)
	if err != nil {
		return nil, false, err
	}
	return w, true, nil
}

// Create generates a key and writes it encrypted to path
func Create(path, passphrase string, scryptN, scryptP int) (*Wallet, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key id: %w", err)
	}

	key := &keystore.Key{
		Id:         id,
		Address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		PrivateKey: privateKey,
	}

	data, err := keystore.EncryptKey(key, passphrase, scryptN, scryptP)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write keystore: %w", err)
	}

	return &Wallet{address: key.Address, key: privateKey}, nil
}

// Address returns the account address
func (w *Wallet) Address() common.Address {
	return w.address
}

// SignTx signs tx for chainID
func (w *Wallet) SignTx(tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error) {
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainID), w.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}
