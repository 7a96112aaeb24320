package lottery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// BalanceSnapshot holds balances captured at one instant, with the order
// they were read in. It only exists to be diffed.
type BalanceSnapshot struct {
	Order    []common.Address
	Balances map[common.Address]*big.Int
}

// TakeBalanceSnapshot reads every address in order and fails on the first error
func TakeBalanceSnapshot(ctx context.Context, r BalanceReader, addrs []common.Address) (*BalanceSnapshot, error) {
	snap := &BalanceSnapshot{
		Order:    addrs,
		Balances: make(map[common.Address]*big.Int, len(addrs)),
	}
	for _, addr := range addrs {
		balance, err := r.BalanceAt(ctx, addr, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read balance of %s: %w", addr.Hex(), err)
		}
		snap.Balances[addr] = balance
	}
	return snap, nil
}

// FirstPositiveDelta returns the first address, in before's order, whose
// balance grew. Addresses missing from either snapshot are skipped. Several
// positive deltas (gas refunds, unrelated transfers) resolve to the first.
func FirstPositiveDelta(before, after *BalanceSnapshot) (common.Address, bool) {
	for _, addr := range before.Order {
		b, okBefore := before.Balances[addr]
		a, okAfter := after.Balances[addr]
		if !okBefore || !okAfter || a == nil || b == nil {
			continue
		}
		if new(big.Int).Sub(a, b).Sign() > 0 {
			return addr, true
		}
	}
	return common.Address{}, false
}

// Draw is the outcome of a winner selection
type Draw struct {
	TxHash     common.Hash     `json:"txHash"`
	Winner     *common.Address `json:"winner,omitempty"` // nil when no candidate gained
	Prize      *big.Int        `json:"prize"`
	Candidates int             `json:"candidates"`
	At         time.Time       `json:"at"`
}

// SubmitFunc sends the winner-selection transaction and waits for its receipt
type SubmitFunc func(ctx context.Context) (*types.Receipt, error)

// WinnerInference infers the winner of a draw from balance changes of the
// candidates. It never looks at event logs.
type WinnerInference struct {
	balances BalanceReader
	contract common.Address
	log      *logrus.Logger
}

func NewWinnerInference(balances BalanceReader, contract common.Address, log *logrus.Logger) *WinnerInference {
	return &WinnerInference{
		balances: balances,
		contract: contract,
		log:      log,
	}
}

// Run snapshots candidate balances and the prize pool, submits, re-reads the
// candidates in the same order and reports the first one that gained.
// Nothing is submitted if a read before submission fails.
func (w *WinnerInference) Run(ctx context.Context, candidates []common.Address, submit SubmitFunc) (*Draw, error) {
	before, err := TakeBalanceSnapshot(ctx, w.balances, candidates)
	if err != nil {
		return nil, err
	}
	prize, err := w.balances.BalanceAt(ctx, w.contract, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read prize pool: %w", err)
	}

	receipt, err := submit(ctx)
	if err != nil {
		return nil, err
	}

	// The draw happened; reading its outcome must not depend on the caller staying
	ctx = context.WithoutCancel(ctx)
	after := &BalanceSnapshot{
		Order:    candidates,
		Balances: make(map[common.Address]*big.Int, len(candidates)),
	}
	for _, addr := range candidates {
		balance, err := w.balances.BalanceAt(ctx, addr, nil)
		if err != nil {
			w.log.Warnf("Skipping %s in winner detection: %v", addr.Hex(), err)
			continue
		}
		after.Balances[addr] = balance
	}

	draw := &Draw{
		TxHash:     receipt.TxHash,
		Prize:      prize,
		Candidates: len(candidates),
		At:         time.Now(),
	}
	if winner, ok := FirstPositiveDelta(before, after); ok {
		draw.Winner = &winner
		w.log.Infof("Winner of %s inferred as %s", receipt.TxHash.Hex(), winner.Hex())
	} else {
		w.log.Warnf("No candidate balance increased after %s, winner unknown", receipt.TxHash.Hex())
	}
	return draw, nil
}
