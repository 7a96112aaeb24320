package lottery

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/airchains-network/lottery-dapp/contract"
	"github.com/airchains-network/lottery-dapp/eth"
	"github.com/airchains-network/lottery-dapp/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// Kind classifies every error an operation can end with
type Kind string

const (
	KindUserRejected Kind = "user_rejected"
	KindWrongNetwork Kind = "wrong_network"
	KindReverted     Kind = "reverted"
	KindNotConnected Kind = "not_connected"
	KindNoProvider   Kind = "no_provider"
	KindBusy         Kind = "busy"
	KindUnknown      Kind = "unknown"
)

var (
	// ErrNoProvider means there is no wallet capability at all. It is fatal
	// for the session: nothing works until a provider is configured.
	ErrNoProvider = errors.New("no wallet provider available")
	// ErrNotConnected is returned when an operation needs a connected wallet
	ErrNotConnected = errors.New("wallet not connected")
	// ErrManagerFirst is returned by Connect while the manager-first gate is closed
	ErrManagerFirst = errors.New("manager account must connect first")
	// ErrNotManager is returned by PickWinner for non-manager callers
	ErrNotManager = errors.New("only the manager can pick a winner")
	// ErrBusy is returned when the same operation is already running
	ErrBusy = errors.New("operation already in progress")
	// ErrSelectUnsupported is returned when the wallet owns account selection
	ErrSelectUnsupported = errors.New("provider does not support account selection")
)

// WrongNetworkError reports a chain id mismatch that could not be fixed by a switch request
type WrongNetworkError struct {
	Have      *big.Int
	Want      *big.Int
	SwitchErr error
}

func (e *WrongNetworkError) Error() string {
	msg := fmt.Sprintf("wrong network: connected to chain %s, need %s", e.Have, e.Want)
	if e.SwitchErr != nil {
		msg += fmt.Sprintf(" (switch failed: %v)", e.SwitchErr)
	}
	return msg
}

func (e *WrongNetworkError) Unwrap() error {
	return e.SwitchErr
}

// RevertedError is an on-chain rejection, at estimation or after mining
type RevertedError struct {
	TxHash common.Hash // zero when the revert was caught before submission
	Reason string
	Err    error
}

func (e *RevertedError) Error() string {
	if e.Reason != "" {
		return "transaction reverted: " + e.Reason
	}
	return "transaction reverted"
}

func (e *RevertedError) Unwrap() error {
	return e.Err
}

// AlreadyActiveError is startLottery reverting because a round is open
type AlreadyActiveError struct {
	*RevertedError
}

func (e *AlreadyActiveError) Unwrap() error {
	return e.RevertedError
}

// InsufficientParticipantsError is selectWinner reverting below three entries
type InsufficientParticipantsError struct {
	*RevertedError
}

func (e *InsufficientParticipantsError) Unwrap() error {
	return e.RevertedError
}

// UnknownError carries anything outside the taxonomy with its raw message
type UnknownError struct {
	Err error
}

func (e *UnknownError) Error() string {
	return e.Err.Error()
}

func (e *UnknownError) Unwrap() error {
	return e.Err
}

// Classify maps err onto the taxonomy
func Classify(err error) Kind {
	var (
		wrongNetwork *WrongNetworkError
		reverted     *RevertedError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoProvider):
		return KindNoProvider
	case errors.Is(err, ErrBusy):
		return KindBusy
	case errors.As(err, &wrongNetwork):
		return KindWrongNetwork
	case errors.Is(err, wallet.ErrUserRejected), eth.IsUserRejected(err):
		return KindUserRejected
	case errors.As(err, &reverted):
		return KindReverted
	case errors.Is(err, ErrNotConnected), errors.Is(err, ErrManagerFirst):
		return KindNotConnected
	default:
		return KindUnknown
	}
}

// submitError converts a provider error from transaction submission into the taxonomy
func submitError(err error) error {
	if errors.Is(err, wallet.ErrUserRejected) {
		return err
	}
	if eth.IsUserRejected(err) {
		return fmt.Errorf("%w: %v", wallet.ErrUserRejected, err)
	}
	if reason, ok := eth.RevertReason(err); ok {
		return &RevertedError{Reason: reason, Err: err}
	}
	return &UnknownError{Err: err}
}

// startError narrows a startLottery revert
func startError(err error) error {
	var reverted *RevertedError
	if errors.As(err, &reverted) && strings.Contains(strings.ToLower(reverted.Reason+" "+errText(reverted.Err)), "already active") {
		return &AlreadyActiveError{RevertedError: reverted}
	}
	return err
}

// pickError narrows a selectWinner revert
func pickError(err error) error {
	var reverted *RevertedError
	if !errors.As(err, &reverted) {
		return err
	}
	text := strings.ToLower(reverted.Reason + " " + errText(reverted.Err))
	if strings.Contains(text, "participants") || strings.Contains(reverted.Reason, "3") {
		return &InsufficientParticipantsError{RevertedError: reverted}
	}
	return err
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// isUnsupported reports a round operation against a ticket deployment
func isUnsupported(err error) bool {
	return errors.Is(err, contract.ErrRoundsUnsupported)
}

func asReverted(err error) (*RevertedError, bool) {
	var reverted *RevertedError
	ok := errors.As(err, &reverted)
	return reverted, ok
}
