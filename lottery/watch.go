package lottery

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Watcher polls the provider for account and chain changes and feeds them
// into the workflow, standing in for wallet push events
type Watcher struct {
	workflow *Workflow
	interval time.Duration
	log      *logrus.Logger
}

func NewWatcher(w *Workflow, interval time.Duration, log *logrus.Logger) *Watcher {
	return &Watcher{
		workflow: w,
		interval: interval,
		log:      log,
	}
}

// Run blocks until ctx is done
func (w *Watcher) Run(ctx context.Context) {
	if w.interval <= 0 {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	session := w.workflow.Session()
	b, err := session.Binding()
	if err != nil {
		return
	}
	p, err := session.Provider()
	if err != nil {
		return
	}

	chainID, err := p.ChainID(ctx)
	if err != nil {
		w.log.Debugf("Watcher failed to read chain id: %v", err)
		return
	}
	if b.ChainID != nil && chainID.Cmp(b.ChainID) != 0 {
		w.workflow.ChainChanged(chainID)
		return
	}

	accounts, err := p.Accounts(ctx)
	if err != nil {
		w.log.Debugf("Watcher failed to read accounts: %v", err)
		return
	}
	if len(accounts) == 0 || accounts[0] != b.Account {
		w.log.Debugf("Provider reports first account %s", firstAccount(accounts))
		if err := w.workflow.AccountsChanged(ctx, accounts); err != nil {
			w.log.Warnf("Account change handling failed: %v", err)
		}
	}
}

func firstAccount(accounts []common.Address) string {
	if len(accounts) == 0 {
		return "none"
	}
	return accounts[0].Hex()
}
