package lottery

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Severity is the CSS-style class attached to a status line
type Severity string

const (
	SeverityNone    Severity = ""
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Status is the single status line shown to the operator
type Status struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Notification is a blocking modal message that stays until dismissed
type Notification struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// NewNotification assigns a fresh id to text
func NewNotification(text string) Notification {
	return Notification{ID: uuid.NewString(), Text: text}
}

// Display is the rendering surface the workflow reports to
type Display interface {
	SetStatus(Status)
	Notify(Notification)
	Dismiss()
}

// ConsoleDisplay writes statuses to the logger and notifications as a
// framed block, for the command line
type ConsoleDisplay struct {
	log *logrus.Logger

	mu      sync.Mutex
	current *Notification
}

func NewConsoleDisplay(log *logrus.Logger) *ConsoleDisplay {
	return &ConsoleDisplay{log: log}
}

func (d *ConsoleDisplay) SetStatus(s Status) {
	switch s.Severity {
	case SeverityError:
		d.log.Error(s.Message)
	case SeverityWarning:
		d.log.Warn(s.Message)
	default:
		d.log.Info(s.Message)
	}
}

func (d *ConsoleDisplay) Notify(n Notification) {
	d.mu.Lock()
	d.current = &n
	d.mu.Unlock()
	fmt.Printf("\n=== Notification ===\n%s\n====================\n", n.Text)
}

func (d *ConsoleDisplay) Dismiss() {
	d.mu.Lock()
	d.current = nil
	d.mu.Unlock()
}

// StatusFor converts an operation error into the status line the operator sees
func StatusFor(operation string, err error) Status {
	var (
		wrongNetwork *WrongNetworkError
		reverted     *RevertedError
		already      *AlreadyActiveError
		tooFew       *InsufficientParticipantsError
	)

	switch {
	case errors.Is(err, ErrManagerFirst):
		return Status{"Please connect with Manager account first!", SeverityError}
	case errors.Is(err, ErrNotManager):
		return Status{"Only the manager can pick a winner", SeverityError}
	case isUnsupported(err):
		return Status{"This lottery has no rounds to start", SeverityError}
	case errors.As(err, &already):
		return Status{"Lottery is already active", SeverityWarning}
	case errors.As(err, &tooFew):
		return Status{"Need at least 3 participants to pick winner", SeverityError}
	}

	switch Classify(err) {
	case KindNoProvider:
		return Status{"Please install a wallet provider!", SeverityError}
	case KindBusy:
		return Status{"Please wait, " + operation + " is already in progress", SeverityWarning}
	case KindUserRejected:
		if operation == OpConnect {
			return Status{"Connection rejected by user", SeverityWarning}
		}
		return Status{"Transaction rejected by user", SeverityWarning}
	case KindWrongNetwork:
		errors.As(err, &wrongNetwork)
		return Status{fmt.Sprintf("Please switch to chain %s!", wrongNetwork.Want), SeverityError}
	case KindNotConnected:
		return Status{"Please connect wallet first", SeverityWarning}
	case KindReverted:
		errors.As(err, &reverted)
		if reverted.Reason != "" {
			return Status{"Transaction reverted: " + reverted.Reason, SeverityError}
		}
		return Status{"Transaction reverted - check contract requirements", SeverityError}
	default:
		switch operation {
		case OpConnect:
			return Status{"Connection failed: " + err.Error(), SeverityError}
		case OpRefreshBalance:
			return Status{"Failed to get balance", SeverityError}
		case OpEnter:
			return Status{"Failed to enter: " + err.Error(), SeverityError}
		default:
			return Status{"Failed: " + err.Error(), SeverityError}
		}
	}
}
