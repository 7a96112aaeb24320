package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrUserRejected is returned when the operator declines a prompt
	ErrUserRejected = errors.New("user rejected the request")
	// ErrSwitchUnsupported is returned by providers bound to a single chain
	ErrSwitchUnsupported = errors.New("provider cannot switch chains")
	// ErrUnknownAccount is returned when the sender is not managed by the provider
	ErrUnknownAccount = errors.New("account not managed by provider")
)

// TxRequest describes a transaction before it is signed
type TxRequest struct {
	To    common.Address
	Value *big.Int
	Data  []byte
	Gas   uint64 // zero means estimate
}

// Reader is the read side of a provider: contract calls, balances, receipts
type Reader interface {
	ethereum.ContractCaller
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Provider is the wallet capability the lottery workflow drives
type Provider interface {
	Reader

	// RequestAccounts asks the operator for account access; the first
	// account is the active one
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Accounts returns the currently exposed accounts without prompting
	Accounts(ctx context.Context) ([]common.Address, error)
	SwitchChain(ctx context.Context, chainID *big.Int) error
	SendTransaction(ctx context.Context, from common.Address, req TxRequest) (common.Hash, error)
}

// AccountSelector is implemented by providers whose active account can be
// changed by the application rather than by an external wallet UI
type AccountSelector interface {
	SelectAccount(addr common.Address) error
}
