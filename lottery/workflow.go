package lottery

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/airchains-network/lottery-dapp/eth"
	"github.com/airchains-network/lottery-dapp/internal/format"
	"github.com/airchains-network/lottery-dapp/metrics"
	"github.com/airchains-network/lottery-dapp/wallet"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// Operation names, used for busy guards, metrics and status wording
const (
	OpConnect        = "connect"
	OpRefresh        = "refresh"
	OpRefreshBalance = "refresh_balance"
	OpStart          = "start"
	OpEnter          = "enter"
	OpPickWinner     = "pick_winner"
)

// Options fixes the deployment the workflow talks to
type Options struct {
	ChainID             *big.Int // nil accepts any chain
	NetworkName         string
	CurrencySymbol      string
	EntryValue          *big.Int // nil uses the variant default
	EntryGasLimit       uint64   // zero uses the variant default
	RequireManagerFirst bool
}

// BindFunc builds the contract binding on top of a provider
type BindFunc func(p wallet.Provider) (Contract, error)

// WorkflowResult is the outcome of one state-changing call
type WorkflowResult struct {
	TxHash       common.Hash `json:"txHash"`
	Success      bool        `json:"success"`
	RevertReason string      `json:"revertReason,omitempty"`
}

// View is what the front end renders
type View struct {
	Connected bool
	Account   common.Address
	ChainID   *big.Int
	State     UIState
	Snapshot  *Snapshot
	Balance   *big.Int
}

// Workflow orchestrates connect, refresh, start, enter and pick-winner.
// Every state-changing operation follows the same shape: check the session,
// submit, wait for one confirmation, re-read the contract, re-project.
// The projected state only moves after a confirmed transaction.
type Workflow struct {
	opts    Options
	session *Session
	bind    BindFunc
	store   SessionStore
	display Display
	log     *logrus.Logger
	metrics *metrics.Metrics

	guards map[string]*sync.Mutex

	mu       sync.RWMutex
	state    UIState
	snapshot *Snapshot
	balance  *big.Int
}

func NewWorkflow(opts Options, session *Session, bind BindFunc, store SessionStore, display Display, log *logrus.Logger, m *metrics.Metrics) *Workflow {
	if opts.NetworkName == "" {
		opts.NetworkName = "the configured"
	}
	guards := make(map[string]*sync.Mutex)
	for _, op := range []string{OpConnect, OpRefresh, OpRefreshBalance, OpStart, OpEnter, OpPickWinner} {
		guards[op] = &sync.Mutex{}
	}
	return &Workflow{
		opts:    opts,
		session: session,
		bind:    bind,
		store:   store,
		display: display,
		log:     log,
		metrics: m,
		guards:  guards,
	}
}

// Session exposes the session for watchers and handlers
func (w *Workflow) Session() *Session {
	return w.session
}

func (w *Workflow) acquire(op string) (func(), error) {
	g := w.guards[op]
	if !g.TryLock() {
		return nil, ErrBusy
	}
	return g.Unlock, nil
}

func (w *Workflow) fail(op string, err error) error {
	switch Classify(err) {
	case KindUserRejected, KindBusy, KindNotConnected:
		w.log.Warnf("%s: %v", op, err)
	default:
		w.log.Errorf("%s failed: %v", op, err)
	}
	w.display.SetStatus(StatusFor(op, err))
	return err
}

func (w *Workflow) status(msg string, sev Severity) {
	w.display.SetStatus(Status{Message: msg, Severity: sev})
}

// View returns the last projected state
func (w *Workflow) View() View {
	w.mu.RLock()
	v := View{State: w.state, Snapshot: w.snapshot, Balance: w.balance}
	w.mu.RUnlock()

	if b, err := w.session.Binding(); err == nil {
		v.Connected = true
		v.Account = b.Account
		v.ChainID = b.ChainID
	}
	return v
}

func (w *Workflow) clearView() {
	w.mu.Lock()
	w.state = Inactive
	w.snapshot = nil
	w.balance = nil
	w.mu.Unlock()
}

// Connect requests account access, checks the network, binds the contract
// and projects the initial state
func (w *Workflow) Connect(ctx context.Context) error {
	release, err := w.acquire(OpConnect)
	if err != nil {
		return w.fail(OpConnect, err)
	}
	defer release()

	if err := w.connect(ctx); err != nil {
		return w.fail(OpConnect, err)
	}
	return nil
}

func (w *Workflow) connect(ctx context.Context) error {
	p, err := w.session.Provider()
	if err != nil {
		return err
	}

	w.status("Connecting wallet...", SeverityNone)
	accounts, err := p.RequestAccounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return fmt.Errorf("%w: provider returned no accounts", ErrNotConnected)
	}
	account := accounts[0]

	chainID, err := w.ensureChain(ctx, p)
	if err != nil {
		return err
	}

	c, err := w.bind(p)
	if err != nil {
		return fmt.Errorf("failed to bind contract: %w", err)
	}
	manager, err := c.Manager(ctx)
	if err != nil {
		return err
	}
	isManager := manager != (common.Address{}) && manager == account

	if w.opts.RequireManagerFirst && !isManager {
		done, err := w.store.ManagerConnected()
		if err != nil {
			return fmt.Errorf("failed to read session state: %w", err)
		}
		if !done {
			w.session.Reset()
			w.clearView()
			w.display.Notify(NewNotification("Please switch to the Manager account and try again.\n\nInitial setup requires the Manager to connect first."))
			return ErrManagerFirst
		}
	}
	if isManager {
		if err := w.store.MarkManagerConnected(); err != nil {
			w.log.Warnf("Failed to record manager connection: %v", err)
		}
	}

	b := &Binding{
		Account:  account,
		ChainID:  chainID,
		Contract: c,
		Reader:   NewStateReader(c, p, w.log, w.metrics),
	}
	w.session.Replace(b)
	w.log.Infof("Connected account %s on chain %s (manager: %v)", account.Hex(), chainID, isManager)
	w.status(fmt.Sprintf("Wallet connected on %s!", w.opts.NetworkName), SeveritySuccess)

	if err := w.refreshBalance(ctx, b); err != nil {
		w.display.SetStatus(StatusFor(OpRefreshBalance, err))
	}
	if _, err := w.refresh(ctx, b); err != nil {
		w.log.Errorf("Error checking manager: %v", err)
	}
	return nil
}

func (w *Workflow) ensureChain(ctx context.Context, p wallet.Provider) (*big.Int, error) {
	have, err := p.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}
	want := w.opts.ChainID
	if want == nil || have.Cmp(want) == 0 {
		return have, nil
	}

	w.log.Warnf("Connected to chain %s, need %s; requesting switch", have, want)
	w.status(fmt.Sprintf("Please switch to %s network!", w.opts.NetworkName), SeverityError)
	if err := p.SwitchChain(ctx, want); err != nil {
		return nil, &WrongNetworkError{Have: have, Want: want, SwitchErr: err}
	}
	have, err = p.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}
	if have.Cmp(want) != 0 {
		return nil, &WrongNetworkError{Have: have, Want: want}
	}
	return have, nil
}

// Disconnect drops the session binding
func (w *Workflow) Disconnect() {
	w.session.Reset()
	w.clearView()
	w.status("Wallet disconnected", SeverityWarning)
}

// AccountsChanged handles the provider reporting a new account list. An
// empty list disconnects; a new first account rebinds and re-projects.
func (w *Workflow) AccountsChanged(ctx context.Context, accounts []common.Address) error {
	current, err := w.session.Binding()
	if err != nil {
		return nil
	}
	if len(accounts) == 0 {
		w.Disconnect()
		return nil
	}
	if accounts[0] == current.Account {
		return nil
	}

	p, err := w.session.Provider()
	if err != nil {
		return w.fail(OpConnect, err)
	}
	c, err := w.bind(p)
	if err != nil {
		return w.fail(OpConnect, fmt.Errorf("failed to bind contract: %w", err))
	}
	b := &Binding{
		Account:  accounts[0],
		ChainID:  current.ChainID,
		Contract: c,
		Reader:   NewStateReader(c, p, w.log, w.metrics),
	}
	w.session.Replace(b)
	w.log.Infof("Account changed to %s", b.Account.Hex())
	w.status("Account changed", SeveritySuccess)

	if _, err := w.refresh(ctx, b); err != nil {
		w.log.Errorf("Error checking manager: %v", err)
	}
	return nil
}

// SelectAccount makes addr the active account of a provider that lets the
// application choose, then handles it as an account change
func (w *Workflow) SelectAccount(ctx context.Context, addr common.Address) error {
	p, err := w.session.Provider()
	if err != nil {
		return w.fail(OpConnect, err)
	}
	selector, ok := p.(wallet.AccountSelector)
	if !ok {
		return w.fail(OpConnect, ErrSelectUnsupported)
	}
	if err := selector.SelectAccount(addr); err != nil {
		return w.fail(OpConnect, err)
	}
	accounts, err := p.Accounts(ctx)
	if err != nil {
		return w.fail(OpConnect, err)
	}
	return w.AccountsChanged(ctx, accounts)
}

// ChainChanged resets the session when the provider moves to another chain;
// the operator has to connect again
func (w *Workflow) ChainChanged(chainID *big.Int) {
	b, err := w.session.Binding()
	if err != nil || (b.ChainID != nil && b.ChainID.Cmp(chainID) == 0) {
		return
	}
	w.log.Warnf("Chain changed from %s to %s, resetting session", b.ChainID, chainID)
	w.session.Reset()
	w.clearView()
	w.status("Network changed, please reconnect", SeverityWarning)
}

// RefreshBalance re-reads only the contract balance
func (w *Workflow) RefreshBalance(ctx context.Context) error {
	release, err := w.acquire(OpRefreshBalance)
	if err != nil {
		return w.fail(OpRefreshBalance, err)
	}
	defer release()

	b, err := w.session.Binding()
	if err != nil {
		return w.fail(OpRefreshBalance, err)
	}
	if err := w.refreshBalance(ctx, b); err != nil {
		return w.fail(OpRefreshBalance, err)
	}
	return nil
}

func (w *Workflow) refreshBalance(ctx context.Context, b *Binding) error {
	w.status("Refreshing balance...", SeverityNone)
	balance, err := b.Reader.ReadBalance(ctx)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.balance = balance
	w.mu.Unlock()
	w.status("Balance updated", SeveritySuccess)
	return nil
}

// Refresh reads a fresh snapshot and re-projects the UI state
func (w *Workflow) Refresh(ctx context.Context) (UIState, error) {
	release, err := w.acquire(OpRefresh)
	if err != nil {
		return w.View().State, w.fail(OpRefresh, err)
	}
	defer release()

	b, err := w.session.Binding()
	if err != nil {
		return w.View().State, w.fail(OpRefresh, err)
	}
	state, err := w.refresh(ctx, b)
	if err != nil {
		return state, w.fail(OpRefresh, err)
	}
	return state, nil
}

func (w *Workflow) refresh(ctx context.Context, b *Binding) (UIState, error) {
	snap, err := b.Reader.ReadSnapshot(ctx)
	if err != nil {
		return w.View().State, err
	}
	state := Project(snap, b.Account)

	// A binding replaced mid-read must not be overwritten with stale data
	if cur, err := w.session.Binding(); err != nil || cur != b {
		return state, nil
	}
	w.mu.Lock()
	w.state = state
	w.snapshot = snap
	w.balance = snap.ContractBalance
	w.mu.Unlock()
	w.log.Debugf("Projected %s for %s (active=%v, manager=%s, entries=%d)", state, b.Account.Hex(), snap.LotteryActive, snap.Manager.Hex(), len(snap.Participants))
	return state, nil
}

// afterTx re-projects once a transaction is confirmed, without touching the status line
func (w *Workflow) afterTx(ctx context.Context, b *Binding) {
	if _, err := w.refresh(ctx, b); err != nil {
		w.log.Warnf("Failed to refresh after transaction: %v", err)
	}
}

// transact submits req from the bound account and waits for one
// confirmation. The wait is detached from ctx: once a transaction is out it
// can only be awaited, never abandoned.
func (w *Workflow) transact(ctx context.Context, op string, b *Binding, req wallet.TxRequest) (*WorkflowResult, *types.Receipt, error) {
	p, err := w.session.Provider()
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	hash, err := p.SendTransaction(ctx, b.Account, req)
	if err != nil {
		err = submitError(err)
		w.metrics.ObserveTx(op, err)
		res := &WorkflowResult{}
		if reverted, ok := asReverted(err); ok {
			res.RevertReason = reverted.Reason
		}
		return res, nil, err
	}
	w.status("Transaction sent, waiting for confirmation...", SeverityNone)
	w.log.Infof("%s: submitted %s, waiting for confirmation", op, hash.Hex())

	confirmCtx := context.WithoutCancel(ctx)
	receipt, err := eth.WaitForReceipt(confirmCtx, p, hash, w.log)
	if err != nil {
		err = &UnknownError{Err: fmt.Errorf("failed waiting for %s: %w", hash.Hex(), err)}
		w.metrics.ObserveTx(op, err)
		return &WorkflowResult{TxHash: hash}, nil, err
	}
	w.metrics.ObserveConfirmation(op, time.Since(start))

	res := &WorkflowResult{TxHash: hash, Success: receipt.Status == types.ReceiptStatusSuccessful}
	if !res.Success {
		to := req.To
		msg := ethereum.CallMsg{From: b.Account, To: &to, Gas: req.Gas, Value: req.Value, Data: req.Data}
		res.RevertReason = eth.ReplayRevertReason(confirmCtx, p, msg, receipt.BlockNumber)
		err = &RevertedError{TxHash: hash, Reason: res.RevertReason}
		w.metrics.ObserveTx(op, err)
		return res, receipt, err
	}
	w.log.Infof("%s: %s confirmed in block %s", op, hash.Hex(), receipt.BlockNumber)
	w.metrics.ObserveTx(op, nil)
	return res, receipt, nil
}

// StartLottery opens a new round with the caller as manager
func (w *Workflow) StartLottery(ctx context.Context) (*WorkflowResult, error) {
	release, err := w.acquire(OpStart)
	if err != nil {
		return nil, w.fail(OpStart, err)
	}
	defer release()

	b, err := w.session.Binding()
	if err != nil {
		return nil, w.fail(OpStart, err)
	}
	data, err := b.Contract.StartLotteryData()
	if err != nil {
		return nil, w.fail(OpStart, err)
	}

	w.status("Starting lottery...", SeverityNone)
	res, _, err := w.transact(ctx, OpStart, b, wallet.TxRequest{To: b.Contract.Address(), Data: data})
	if err != nil {
		return res, w.fail(OpStart, startError(err))
	}
	w.status("Lottery started!", SeveritySuccess)
	w.afterTx(ctx, b)
	return res, nil
}

// EnterLottery sends the entry amount to the contract's receive path
func (w *Workflow) EnterLottery(ctx context.Context) (*WorkflowResult, error) {
	release, err := w.acquire(OpEnter)
	if err != nil {
		return nil, w.fail(OpEnter, err)
	}
	defer release()

	b, err := w.session.Binding()
	if err != nil {
		return nil, w.fail(OpEnter, err)
	}

	value := w.opts.EntryValue
	if value == nil {
		value = b.Contract.Variant().DefaultEntryValue()
	}
	gas := w.opts.EntryGasLimit
	if gas == 0 {
		gas = b.Contract.Variant().DefaultEntryGasLimit()
	}

	w.status("Entering lottery...", SeverityNone)
	res, _, err := w.transact(ctx, OpEnter, b, wallet.TxRequest{To: b.Contract.Address(), Value: value, Gas: gas})
	if err != nil {
		return res, w.fail(OpEnter, err)
	}
	w.status("Successfully entered the lottery!", SeveritySuccess)
	w.afterTx(ctx, b)
	return res, nil
}

// PickWinner selects the winner (manager only) and infers who received the prize
func (w *Workflow) PickWinner(ctx context.Context) (*Draw, error) {
	release, err := w.acquire(OpPickWinner)
	if err != nil {
		return nil, w.fail(OpPickWinner, err)
	}
	defer release()

	b, err := w.session.Binding()
	if err != nil {
		return nil, w.fail(OpPickWinner, err)
	}
	draw, err := w.pickWinner(ctx, b)
	if err != nil {
		return nil, w.fail(OpPickWinner, pickError(err))
	}
	return draw, nil
}

func (w *Workflow) pickWinner(ctx context.Context, b *Binding) (*Draw, error) {
	p, err := w.session.Provider()
	if err != nil {
		return nil, err
	}

	w.status("Collecting participants...", SeverityNone)
	manager, err := b.Contract.Manager(ctx)
	if err != nil {
		return nil, err
	}
	if manager == (common.Address{}) || manager != b.Account {
		return nil, ErrNotManager
	}

	participants, err := b.Reader.Participants(ctx)
	if err != nil {
		return nil, err
	}
	candidates := (&Snapshot{Participants: participants}).Candidates()
	w.log.Infof("Participants: %d entries, %d unique", len(participants), len(candidates))

	data, err := b.Contract.SelectWinnerData()
	if err != nil {
		return nil, err
	}

	inference := NewWinnerInference(p, b.Contract.Address(), w.log)
	draw, err := inference.Run(ctx, candidates, func(ctx context.Context) (*types.Receipt, error) {
		w.status("Selecting winner...", SeverityNone)
		_, receipt, err := w.transact(ctx, OpPickWinner, b, wallet.TxRequest{To: b.Contract.Address(), Data: data})
		return receipt, err
	})
	if err != nil {
		return nil, err
	}

	w.metrics.ObserveDraw(draw.Winner != nil)
	if err := w.store.RecordDraw(draw); err != nil {
		w.log.Warnf("Failed to record draw %s: %v", draw.TxHash.Hex(), err)
	}
	w.announce(draw)
	w.afterTx(ctx, b)
	return draw, nil
}

func (w *Workflow) announce(d *Draw) {
	prize := format.Ether(d.Prize)
	if w.opts.CurrencySymbol != "" {
		prize += " " + w.opts.CurrencySymbol
	}
	tx := format.ShortHash(d.TxHash)

	if d.Winner != nil {
		winner := format.ShortAddress(*d.Winner)
		w.status(fmt.Sprintf("Winner: %s won %s!", winner, prize), SeveritySuccess)
		w.display.Notify(NewNotification(fmt.Sprintf("Winner Selected!\n\nWinner: %s\n\nPrize: %s\n\nTx: %s", winner, prize, tx)))
		return
	}
	w.status(fmt.Sprintf("Winner selected! Prize: %s sent.", prize), SeveritySuccess)
	w.display.Notify(NewNotification(fmt.Sprintf("Winner Selected!\n\nPrize: %s\n\nTx: %s", prize, tx)))
}
