package lottery

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// UIState is the set of panels the front end shows. The three values are
// mutually exclusive.
type UIState int

const (
	// Inactive shows the "start" affordance only
	Inactive UIState = iota
	// ActiveParticipant shows "enter" only
	ActiveParticipant
	// ActiveManager shows "enter" and the manager controls
	ActiveManager
)

func (s UIState) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case ActiveParticipant:
		return "active_participant"
	case ActiveManager:
		return "active_manager"
	default:
		return "unknown"
	}
}

// MarshalText lets UIState travel as its name in JSON
func (s UIState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *UIState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "inactive":
		*s = Inactive
	case "active_participant":
		*s = ActiveParticipant
	case "active_manager":
		*s = ActiveManager
	default:
		return fmt.Errorf("unknown UI state %q", text)
	}
	return nil
}

// Panels is the visibility of each affordance
type Panels struct {
	Start           bool `json:"start"`
	Enter           bool `json:"enter"`
	ManagerControls bool `json:"managerControls"`
}

func (s UIState) Panels() Panels {
	switch s {
	case ActiveParticipant:
		return Panels{Enter: true}
	case ActiveManager:
		return Panels{Enter: true, ManagerControls: true}
	default:
		return Panels{Start: true}
	}
}

// IsManager reports whether caller is the snapshot's manager. The zero
// address means "no manager" and never matches, nor does a zero caller.
func IsManager(snapshot *Snapshot, caller common.Address) bool {
	if snapshot == nil || snapshot.Manager == (common.Address{}) || caller == (common.Address{}) {
		return false
	}
	return snapshot.Manager == caller
}

// Project maps a contract snapshot and the connected account onto a UIState
func Project(snapshot *Snapshot, caller common.Address) UIState {
	if snapshot == nil || !snapshot.LotteryActive {
		return Inactive
	}
	if IsManager(snapshot, caller) {
		return ActiveManager
	}
	return ActiveParticipant
}
