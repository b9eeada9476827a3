package contracts

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const rewardsABIJSON = `[
  {
    "inputs": [
      {"internalType": "address", "name": "_poolAddress", "type": "address"},
      {"internalType": "address", "name": "_account", "type": "address"}
    ],
    "name": "getDepositedPoolTokenBalanceByUser",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "_poolAddress", "type": "address"},
      {"internalType": "address", "name": "_account", "type": "address"}
    ],
    "name": "getUnclaimedPoolRewardsByUserByPool",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "_poolAddress", "type": "address"},
      {"internalType": "uint256", "name": "_amount", "type": "uint256"}
    ],
    "name": "depositPoolTokens",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "_poolAddress", "type": "address"},
      {"internalType": "uint256", "name": "_amount", "type": "uint256"}
    ],
    "name": "withdrawPoolTokens",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "_poolAddress", "type": "address"}
    ],
    "name": "withdrawUnclaimedPoolRewards",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

const erc20ABIJSON = `[
  {"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "owner", "type": "address"}, {"internalType": "address", "name": "spender", "type": "address"}], "name": "allowance", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "spender", "type": "address"}, {"internalType": "uint256", "name": "amount", "type": "uint256"}], "name": "approve", "outputs": [{"internalType": "bool", "name": "", "type": "bool"}], "stateMutability": "nonpayable", "type": "function"}
]`

var (
	rewardsABI     abi.ABI
	rewardsABIOnce sync.Once
	rewardsABIErr  error

	erc20ABI     abi.ABI
	erc20ABIOnce sync.Once
	erc20ABIErr  error
)

// RewardsABI returns the parsed rewards contract ABI.
func RewardsABI() (abi.ABI, error) {
	rewardsABIOnce.Do(func() {
		rewardsABI, rewardsABIErr = abi.JSON(strings.NewReader(rewardsABIJSON))
	})
	return rewardsABI, rewardsABIErr
}

// ERC20ABI returns the parsed subset of the ERC20 ABI used for LP tokens.
func ERC20ABI() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}
