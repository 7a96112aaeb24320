package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// ConfirmFunc is asked before every transaction is signed. Returning false
// rejects the transaction.
type ConfirmFunc func(from common.Address, req TxRequest) bool

// AutoConfirm approves every transaction
func AutoConfirm(common.Address, TxRequest) bool { return true }

// Keystore signs with local go-ethereum keystore accounts and submits
// through a single RPC endpoint
type Keystore struct {
	*ethclient.Client

	ks       *keystore.KeyStore
	password string
	confirm  ConfirmFunc
	log      *logrus.Logger

	mu       sync.Mutex
	selected common.Address
	chainID  *big.Int
}

// NewKeystore opens the keystore in dir. selected may be zero, in which case
// the first account in the keystore becomes active.
func NewKeystore(client *ethclient.Client, dir string, selected common.Address, password string, confirm ConfirmFunc, log *logrus.Logger) (*Keystore, error) {
	ks := keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)
	if len(ks.Accounts()) == 0 {
		return nil, fmt.Errorf("no accounts in keystore %s", dir)
	}
	if selected == (common.Address{}) {
		selected = ks.Accounts()[0].Address
	} else if !ks.HasAddress(selected) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, selected.Hex())
	}
	if confirm == nil {
		confirm = AutoConfirm
	}

	return &Keystore{
		Client:   client,
		ks:       ks,
		password: password,
		confirm:  confirm,
		log:      log,
		selected: selected,
	}, nil
}

// RequestAccounts unlocks the active account and returns it first
func (k *Keystore) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	k.mu.Lock()
	selected := k.selected
	k.mu.Unlock()

	if err := k.ks.Unlock(accounts.Account{Address: selected}, k.password); err != nil {
		return nil, fmt.Errorf("failed to unlock %s: %w", selected.Hex(), err)
	}
	k.log.Infof("Unlocked keystore account %s", selected.Hex())
	return k.Accounts(ctx)
}

// Accounts returns every keystore account with the active one first
func (k *Keystore) Accounts(ctx context.Context) ([]common.Address, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	addrs := []common.Address{k.selected}
	for _, acc := range k.ks.Accounts() {
		if acc.Address != k.selected {
			addrs = append(addrs, acc.Address)
		}
	}
	return addrs, nil
}

// SelectAccount makes addr the active account, unlocking it with the keystore password
func (k *Keystore) SelectAccount(addr common.Address) error {
	if !k.ks.HasAddress(addr) {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, addr.Hex())
	}
	if err := k.ks.Unlock(accounts.Account{Address: addr}, k.password); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", addr.Hex(), err)
	}

	k.mu.Lock()
	k.selected = addr
	k.mu.Unlock()
	return nil
}

// SwitchChain is not possible for a keystore bound to one endpoint
func (k *Keystore) SwitchChain(ctx context.Context, chainID *big.Int) error {
	return ErrSwitchUnsupported
}

// SendTransaction signs req as from and broadcasts it. Nonce, fees and, when
// req.Gas is zero, the gas limit are filled in by the bind transactor, so a
// call that would revert fails here with the node's revert error.
func (k *Keystore) SendTransaction(ctx context.Context, from common.Address, req TxRequest) (common.Hash, error) {
	if !k.ks.HasAddress(from) {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrUnknownAccount, from.Hex())
	}
	if !k.confirm(from, req) {
		return common.Hash{}, ErrUserRejected
	}

	chainID, err := k.cachedChainID(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	opts, err := bind.NewKeyStoreTransactorWithChainID(k.ks, accounts.Account{Address: from}, chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx
	opts.Value = req.Value
	opts.GasLimit = req.Gas

	bound := bind.NewBoundContract(req.To, abi.ABI{}, k.Client, k.Client, k.Client)
	tx, err := bound.RawTransact(opts, req.Data)
	if err != nil {
		return common.Hash{}, err
	}
	k.log.Infof("Sent tx %s from %s to %s", tx.Hash().Hex(), from.Hex(), req.To.Hex())
	return tx.Hash(), nil
}

func (k *Keystore) cachedChainID(ctx context.Context) (*big.Int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.chainID != nil {
		return k.chainID, nil
	}
	id, err := k.Client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	k.chainID = id
	return id, nil
}
