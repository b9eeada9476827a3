package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeySigner signs transactions with a local private key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeySigner parses a hex private key (with or without 0x).
func NewKeySigner(privateKeyHex string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	publicKey, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to derive public key")
	}

	return &KeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(*publicKey),
	}, nil
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

// ResolveAccount picks the acting account: the signer when present, else an
// explicit read-only address. A nil result means no wallet is connected.
func ResolveAccount(signer *KeySigner, account string) (*common.Address, error) {
	if signer != nil {
		addr := signer.Address()
		return &addr, nil
	}
	account = strings.TrimSpace(account)
	if account == "" {
		return nil, nil
	}
	if !common.IsHexAddress(account) {
		return nil, fmt.Errorf("invalid account: %s", account)
	}
	addr := common.HexToAddress(account)
	return &addr, nil
}
