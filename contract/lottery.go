package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ErrRoundsUnsupported is returned for round operations on a ticket deployment
var ErrRoundsUnsupported = errors.New("contract variant has no lottery rounds")

// Lottery packs and unpacks calls against a deployed lottery contract.
// State-changing calls are only encoded here; signing and submission belong
// to the wallet provider.
type Lottery struct {
	address common.Address
	variant Variant
	abi     abi.ABI
	caller  ethereum.ContractCaller
}

// NewLottery binds the contract at address using the interface of variant
func NewLottery(address common.Address, variant Variant, caller ethereum.ContractCaller) (*Lottery, error) {
	parsed, err := abi.JSON(strings.NewReader(variant.ABI()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s lottery ABI: %w", variant, err)
	}
	return &Lottery{
		address: address,
		variant: variant,
		abi:     parsed,
		caller:  caller,
	}, nil
}

func (l *Lottery) Address() common.Address {
	return l.address
}

func (l *Lottery) Variant() Variant {
	return l.variant
}

func (l *Lottery) call(ctx context.Context, from common.Address, method string, args ...interface{}) ([]interface{}, error) {
	input, err := l.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	output, err := l.caller.CallContract(ctx, ethereum.CallMsg{From: from, To: &l.address, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	res, err := l.abi.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return res, nil
}

// Manager returns the account allowed to pick the winner
func (l *Lottery) Manager(ctx context.Context) (common.Address, error) {
	res, err := l.call(ctx, common.Address{}, "manager")
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(res[0], new(common.Address)).(*common.Address), nil
}

// LotteryActive reports whether a round is open. Ticket deployments are always open.
func (l *Lottery) LotteryActive(ctx context.Context) (bool, error) {
	if !l.variant.HasRounds() {
		return true, nil
	}
	res, err := l.call(ctx, common.Address{}, "lotteryActive")
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(res[0], new(bool)).(*bool), nil
}

// Participant returns the entry at index. The contract reverts past the end of the list.
func (l *Lottery) Participant(ctx context.Context, index int) (common.Address, error) {
	res, err := l.call(ctx, common.Address{}, "participants", big.NewInt(int64(index)))
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(res[0], new(common.Address)).(*common.Address), nil
}

// GetBalance calls the manager-only getBalance() as from
func (l *Lottery) GetBalance(ctx context.Context, from common.Address) (*big.Int, error) {
	res, err := l.call(ctx, from, "getBalance")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(res[0], new(*big.Int)).(**big.Int), nil
}

// SelectWinnerData returns the calldata of selectWinner()
func (l *Lottery) SelectWinnerData() ([]byte, error) {
	return l.abi.Pack("selectWinner")
}

// StartLotteryData returns the calldata of startLottery()
func (l *Lottery) StartLotteryData() ([]byte, error) {
	if !l.variant.HasRounds() {
		return nil, ErrRoundsUnsupported
	}
	return l.abi.Pack("startLottery")
}
