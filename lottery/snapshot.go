package lottery

import (
	"context"
	"fmt"
	"math/big"

	"github.com/airchains-network/lottery-dapp/contract"
	"github.com/airchains-network/lottery-dapp/metrics"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// MaxParticipants bounds participant enumeration. Contract behaviour past
// this many entries is not relied upon.
const MaxParticipants = 100

// Contract is the lottery binding the workflow reads from and encodes calls with
type Contract interface {
	Address() common.Address
	Variant() contract.Variant
	Manager(ctx context.Context) (common.Address, error)
	LotteryActive(ctx context.Context) (bool, error)
	Participant(ctx context.Context, index int) (common.Address, error)
	SelectWinnerData() ([]byte, error)
	StartLotteryData() ([]byte, error)
}

// BalanceReader reads native balances
type BalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Snapshot is the contract state at one query instant. It is never cached.
type Snapshot struct {
	LotteryActive   bool             `json:"lotteryActive"`
	Manager         common.Address   `json:"manager"`
	ContractBalance *big.Int         `json:"contractBalance"`
	Participants    []common.Address `json:"participants"` // entry order, duplicates kept
}

// Candidates returns the participants without duplicates, in order of first entry
func (s *Snapshot) Candidates() []common.Address {
	seen := make(map[common.Address]struct{}, len(s.Participants))
	out := make([]common.Address, 0, len(s.Participants))
	for _, p := range s.Participants {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// StateReader reads snapshots of one lottery contract
type StateReader struct {
	contract Contract
	balances BalanceReader
	log      *logrus.Logger
	metrics  *metrics.Metrics
}

func NewStateReader(c Contract, balances BalanceReader, log *logrus.Logger, m *metrics.Metrics) *StateReader {
	return &StateReader{
		contract: c,
		balances: balances,
		log:      log,
		metrics:  m,
	}
}

// ReadSnapshot reads the active flag, manager and balance concurrently, then
// enumerates participants
func (r *StateReader) ReadSnapshot(ctx context.Context) (*Snapshot, error) {
	snap, err := r.readSnapshot(ctx)
	participants := 0
	if snap != nil {
		participants = len(snap.Participants)
	}
	r.metrics.ObserveSnapshot(participants, err)
	return snap, err
}

func (r *StateReader) readSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		active, err := r.contract.LotteryActive(gctx)
		if err != nil {
			return fmt.Errorf("failed to read lottery state: %w", err)
		}
		snap.LotteryActive = active
		return nil
	})
	g.Go(func() error {
		manager, err := r.contract.Manager(gctx)
		if err != nil {
			return fmt.Errorf("failed to read manager: %w", err)
		}
		snap.Manager = manager
		return nil
	})
	g.Go(func() error {
		balance, err := r.ReadBalance(gctx)
		if err != nil {
			return err
		}
		snap.ContractBalance = balance
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	participants, err := r.Participants(ctx)
	if err != nil {
		return nil, err
	}
	snap.Participants = participants
	return snap, nil
}

// ReadBalance reads the contract's native balance directly rather than via
// the manager-only getBalance()
func (r *StateReader) ReadBalance(ctx context.Context) (*big.Int, error) {
	balance, err := r.balances.BalanceAt(ctx, r.contract.Address(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract balance: %w", err)
	}
	return balance, nil
}

// Participants calls participants(i) from zero until a call fails or
// MaxParticipants reads were made. The failing call marks the end of the
// list and is not an error; only cancellation of ctx is.
func (r *StateReader) Participants(ctx context.Context) ([]common.Address, error) {
	out := []common.Address{}
	for i := 0; i < MaxParticipants; i++ {
		addr, err := r.contract.Participant(ctx, i)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			r.log.Debugf("Participant list ends at index %d: %v", i, err)
			break
		}
		out = append(out, addr)
	}
	return out, nil
}
