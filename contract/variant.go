package contract

import (
	"fmt"
	"math/big"
	"strings"
)

// Variant selects which deployment of the lottery contract is targeted
type Variant string

const (
	// VariantTicket has no round state; the lottery is always open
	VariantTicket Variant = "ticket"
	// VariantRound exposes lotteryActive() and startLottery()
	VariantRound Variant = "round"
)

const (
	ticketEntryWei      = 2_000_000_000_000_000 // 0.002 ETH
	ticketEntryGasLimit = 100_000
)

// ParseVariant converts a config value into a Variant
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case VariantTicket, "":
		return VariantTicket, nil
	case VariantRound:
		return VariantRound, nil
	default:
		return "", fmt.Errorf("unknown contract variant %q (want %q or %q)", s, VariantTicket, VariantRound)
	}
}

// HasRounds reports whether the contract tracks an active flag and can be restarted
func (v Variant) HasRounds() bool {
	return v == VariantRound
}

// ABI returns the JSON interface for the variant
func (v Variant) ABI() string {
	if v.HasRounds() {
		return RoundABI
	}
	return TicketABI
}

// DefaultEntryValue is the amount a plain transfer must carry to count as an entry
func (v Variant) DefaultEntryValue() *big.Int {
	if v.HasRounds() {
		return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	}
	return big.NewInt(ticketEntryWei)
}

// DefaultEntryGasLimit returns the explicit gas limit used for entries, zero means estimate
func (v Variant) DefaultEntryGasLimit() uint64 {
	if v.HasRounds() {
		return 0
	}
	return ticketEntryGasLimit
}
