package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// ErrReverted is returned when a mined transaction has a failed receipt.
var ErrReverted = errors.New("transaction reverted")

// Signer signs transactions for a single account.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Client wraps go-ethereum RPC and provides helper methods.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	pollInterval time.Duration

	mu      sync.Mutex
	chainID *big.Int
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string, pollInterval time.Duration) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	return &Client{
		rpcClient:    rpcClient,
		ethClient:    ethclient.NewClient(rpcClient),
		pollInterval: pollInterval,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID, cached after the first call.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	cached := c.chainID
	c.mu.Unlock()
	if cached != nil {
		return new(big.Int).Set(cached), nil
	}

	id, err := c.ethClient.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.chainID = id
	c.mu.Unlock()
	return new(big.Int).Set(id), nil
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

// SendTx builds, signs, and broadcasts a contract call. It returns as soon as
// the node accepts the transaction; use WaitMined for inclusion.
func (c *Client) SendTx(ctx context.Context, signer Signer, to common.Address, data []byte) (common.Hash, error) {
	if signer == nil {
		return common.Hash{}, fmt.Errorf("signer is nil")
	}
	from := signer.Address()

	chainID, err := c.GetChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get chain id: %w", err)
	}

	nonce, err := c.ethClient.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get nonce: %w", err)
	}

	gasPrice, err := c.ethClient.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get gas price: %w", err)
	}

	estimatedGas, err := c.ethClient.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}
	gasLimit := estimatedGas * 120 / 100

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signedTx, err := signer.SignTx(tx, chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}

	if err := c.ethClient.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}
	return signedTx.Hash(), nil
}

// WaitMined polls for the receipt of txHash until it is included or ctx ends.
func (c *Client) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.ethClient.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("%s: %w", txHash.Hex(), ErrReverted)
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("get receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
