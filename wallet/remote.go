package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/airchains-network/lottery-dapp/eth"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
)

// Remote drives an external signer (Frame, a browser bridge, Clef in
// EIP-1193 mode) that holds the keys and shows its own prompts
type Remote struct {
	*ethclient.Client

	rpc *rpc.Client
	log *logrus.Logger
}

// NewRemote uses client for both wallet methods and chain reads
func NewRemote(client *eth.Client, log *logrus.Logger) *Remote {
	return &Remote{
		Client: client.Eth,
		rpc:    client.Rpc,
		log:    log,
	}
}

func (r *Remote) accounts(ctx context.Context, method string) ([]common.Address, error) {
	var accs []common.Address
	if err := r.rpc.CallContext(ctx, &accs, method); err != nil {
		if eth.IsUserRejected(err) {
			return nil, fmt.Errorf("%w: %v", ErrUserRejected, err)
		}
		return nil, fmt.Errorf("%s failed: %w", method, err)
	}
	return accs, nil
}

// RequestAccounts prompts the signer for access
func (r *Remote) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return r.accounts(ctx, "eth_requestAccounts")
}

// Accounts lists the accounts the signer currently exposes
func (r *Remote) Accounts(ctx context.Context) ([]common.Address, error) {
	return r.accounts(ctx, "eth_accounts")
}

// SwitchChain asks the signer to move to chainID (EIP-3326)
func (r *Remote) SwitchChain(ctx context.Context, chainID *big.Int) error {
	params := map[string]string{"chainId": hexutil.EncodeBig(chainID)}
	if err := r.rpc.CallContext(ctx, nil, "wallet_switchEthereumChain", params); err != nil {
		if eth.IsUserRejected(err) {
			return fmt.Errorf("%w: %v", ErrUserRejected, err)
		}
		return fmt.Errorf("wallet_switchEthereumChain failed: %w", err)
	}
	r.log.Infof("Signer switched to chain %s", chainID)
	return nil
}

type sendTxArgs struct {
	From  common.Address  `json:"from"`
	To    common.Address  `json:"to"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
}

// SendTransaction hands req to the signer, which fills in nonce and fees
func (r *Remote) SendTransaction(ctx context.Context, from common.Address, req TxRequest) (common.Hash, error) {
	args := sendTxArgs{From: from, To: req.To, Data: req.Data}
	if req.Value != nil {
		args.Value = (*hexutil.Big)(req.Value)
	}
	if req.Gas != 0 {
		gas := hexutil.Uint64(req.Gas)
		args.Gas = &gas
	}

	var hash common.Hash
	if err := r.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		if eth.IsUserRejected(err) {
			return common.Hash{}, fmt.Errorf("%w: %v", ErrUserRejected, err)
		}
		return common.Hash{}, err
	}
	r.log.Infof("Signer sent tx %s from %s to %s", hash.Hex(), from.Hex(), req.To.Hex())
	return hash, nil
}
