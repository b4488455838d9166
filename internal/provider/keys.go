package provider

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

var ErrNoKey = errors.New("no wallet key configured")

// KeySource describes where the signing key comes from.
// A private key wins over a mnemonic when both are set.
type KeySource struct {
	PrivateKeyHex string
	Mnemonic      string
	Index         uint32
}

func (k KeySource) HasMnemonic() bool {
	return strings.TrimSpace(k.PrivateKeyHex) == "" && strings.TrimSpace(k.Mnemonic) != ""
}

// Key returns the signing key for the configured account index.
func (k KeySource) Key() (*ecdsa.PrivateKey, error) {
	return k.KeyAt(k.Index)
}

func (k KeySource) KeyAt(index uint32) (*ecdsa.PrivateKey, error) {
	if hexKey := strings.TrimSpace(k.PrivateKeyHex); hexKey != "" {
		return PrivateKeyFromHex(hexKey)
	}
	if m := strings.TrimSpace(k.Mnemonic); m != "" {
		return DeriveFromMnemonic(m, index)
	}
	return nil, ErrNoKey
}

func PrivateKeyFromHex(s string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// DeriveFromMnemonic derives m/44'/60'/0'/0/index.
func DeriveFromMnemonic(mnemonic string, index uint32) (*ecdsa.PrivateKey, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, "")

	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}

	path := []uint32{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + 60,
		hdkeychain.HardenedKeyStart + 0,
		0,
		index,
	}
	for _, child := range path {
		key, err = key.Derive(child)
		if err != nil {
			return nil, fmt.Errorf("derive %d: %w", child, err)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("ec private key: %w", err)
	}
	return crypto.ToECDSA(priv.Serialize())
}
