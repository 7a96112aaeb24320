package lottery

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"

	"github.com/airchains-network/lottery-dapp/contract"
	"github.com/airchains-network/lottery-dapp/wallet"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

var (
	contractAddr = common.HexToAddress("0xcd082cc9ea4e02c9113376c9d5992c176b9f3101")
	addrA        = common.HexToAddress("0x000000000000000000000000000000000000000a")
	addrB        = common.HexToAddress("0x000000000000000000000000000000000000000b")
	addrC        = common.HexToAddress("0x000000000000000000000000000000000000000c")
	sepolia      = big.NewInt(11155111)
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakeChain is an in-memory lottery contract plus native balances
type fakeChain struct {
	mu           sync.Mutex
	variant      contract.Variant
	manager      common.Address
	active       bool
	participants []common.Address
	balances     map[common.Address]*big.Int
	managerErr   error
	reads        int
}

func newFakeChain(variant contract.Variant) *fakeChain {
	return &fakeChain{
		variant:  variant,
		active:   !variant.HasRounds(),
		balances: map[common.Address]*big.Int{contractAddr: big.NewInt(0)},
	}
}

func (c *fakeChain) credit(addr common.Address, amount int64) {
	bal, ok := c.balances[addr]
	if !ok {
		bal = big.NewInt(0)
	}
	c.balances[addr] = new(big.Int).Add(bal, big.NewInt(amount))
}

type fakeContract struct {
	chain *fakeChain
}

func (f *fakeContract) Address() common.Address { return contractAddr }

func (f *fakeContract) Variant() contract.Variant { return f.chain.variant }

func (f *fakeContract) Manager(ctx context.Context) (common.Address, error) {
	f.chain.mu.Lock()
	defer f.chain.mu.Unlock()
	return f.chain.manager, f.chain.managerErr
}

func (f *fakeContract) LotteryActive(ctx context.Context) (bool, error) {
	f.chain.mu.Lock()
	defer f.chain.mu.Unlock()
	return f.chain.active, nil
}

func (f *fakeContract) Participant(ctx context.Context, index int) (common.Address, error) {
	if err := ctx.Err(); err != nil {
		return common.Address{}, err
	}
	f.chain.mu.Lock()
	defer f.chain.mu.Unlock()
	f.chain.reads++
	if index >= len(f.chain.participants) {
		return common.Address{}, errors.New("execution reverted")
	}
	return f.chain.participants[index], nil
}

func (f *fakeContract) SelectWinnerData() ([]byte, error) {
	return []byte("selectWinner"), nil
}

func (f *fakeContract) StartLotteryData() ([]byte, error) {
	if !f.chain.variant.HasRounds() {
		return nil, contract.ErrRoundsUnsupported
	}
	return []byte("startLottery"), nil
}

// fakeProvider is a wallet bound to a fakeChain. Successful transactions
// are applied through onSend.
type fakeProvider struct {
	chain *fakeChain

	mu           sync.Mutex
	accounts     []common.Address
	chainID      *big.Int
	requestErr   error
	switchErr    error
	sendErr      error
	revertReason string // non-empty makes mined transactions fail
	onSend       func(c *fakeChain, from common.Address, req wallet.TxRequest)
	receipts     map[common.Hash]*types.Receipt
	sent         []wallet.TxRequest
}

func newFakeProvider(chain *fakeChain, accounts ...common.Address) *fakeProvider {
	return &fakeProvider{
		chain:    chain,
		accounts: accounts,
		chainID:  new(big.Int).Set(sepolia),
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

func (p *fakeProvider) setAccounts(accounts ...common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts = accounts
}

func (p *fakeProvider) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return nil, nil
}

func (p *fakeProvider) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.revertReason != "" {
		return nil, errors.New("execution reverted: " + p.revertReason)
	}
	return nil, nil
}

func (p *fakeProvider) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	p.chain.mu.Lock()
	defer p.chain.mu.Unlock()
	if bal, ok := p.chain.balances[account]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (p *fakeProvider) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (p *fakeProvider) ChainID(ctx context.Context) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.chainID), nil
}

func (p *fakeProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.requestErr != nil {
		return nil, p.requestErr
	}
	return append([]common.Address{}, p.accounts...), nil
}

func (p *fakeProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]common.Address{}, p.accounts...), nil
}

func (p *fakeProvider) SwitchChain(ctx context.Context, chainID *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.switchErr != nil {
		return p.switchErr
	}
	p.chainID = new(big.Int).Set(chainID)
	return nil
}

func (p *fakeProvider) SendTransaction(ctx context.Context, from common.Address, req wallet.TxRequest) (common.Hash, error) {
	p.mu.Lock()
	if p.sendErr != nil {
		p.mu.Unlock()
		return common.Hash{}, p.sendErr
	}
	p.sent = append(p.sent, req)
	hash := common.BigToHash(big.NewInt(int64(len(p.sent))))
	receipt := &types.Receipt{
		TxHash:      hash,
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(int64(100 + len(p.sent))),
	}
	if p.revertReason != "" {
		receipt.Status = types.ReceiptStatusFailed
	}
	p.receipts[hash] = receipt
	onSend := p.onSend
	p.mu.Unlock()

	if receipt.Status == types.ReceiptStatusSuccessful && onSend != nil {
		p.chain.mu.Lock()
		onSend(p.chain, from, req)
		p.chain.mu.Unlock()
	}
	return hash, nil
}

func (p *fakeProvider) SelectAccount(addr common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, a := range p.accounts {
		if a == addr {
			rest := append(append([]common.Address{}, p.accounts[:i]...), p.accounts[i+1:]...)
			p.accounts = append([]common.Address{addr}, rest...)
			return nil
		}
	}
	return wallet.ErrUnknownAccount
}

func (p *fakeProvider) sentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

// recordingDisplay keeps everything the workflow reported
type recordingDisplay struct {
	mu        sync.Mutex
	statuses  []Status
	notes     []Notification
	dismissed int
}

func (d *recordingDisplay) SetStatus(s Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statuses = append(d.statuses, s)
}

func (d *recordingDisplay) Notify(n Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notes = append(d.notes, n)
}

func (d *recordingDisplay) Dismiss() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dismissed++
}

func (d *recordingDisplay) last() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.statuses) == 0 {
		return Status{}
	}
	return d.statuses[len(d.statuses)-1]
}

func (d *recordingDisplay) messages() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.statuses))
	for _, s := range d.statuses {
		out = append(out, s.Message)
	}
	return out
}

type memStore struct {
	mu               sync.Mutex
	managerConnected bool
	draws            []*Draw
}

func (s *memStore) ManagerConnected() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.managerConnected, nil
}

func (s *memStore) MarkManagerConnected() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.managerConnected = true
	return nil
}

func (s *memStore) RecordDraw(d *Draw) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draws = append(s.draws, d)
	return nil
}

type harness struct {
	chain    *fakeChain
	provider *fakeProvider
	display  *recordingDisplay
	store    *memStore
	workflow *Workflow
}

func newHarness(t *testing.T, chain *fakeChain, provider *fakeProvider, opts Options) *harness {
	t.Helper()
	if opts.ChainID == nil {
		opts.ChainID = sepolia
	}
	if opts.NetworkName == "" {
		opts.NetworkName = "Sepolia"
	}
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = "SEP ETH"
	}
	h := &harness{
		chain:    chain,
		provider: provider,
		display:  &recordingDisplay{},
		store:    &memStore{},
	}
	var session *Session
	if provider != nil {
		session = NewSession(provider)
	} else {
		session = NewSession(nil)
	}
	bind := func(p wallet.Provider) (Contract, error) {
		return &fakeContract{chain: chain}, nil
	}
	h.workflow = NewWorkflow(opts, session, bind, h.store, h.display, quietLogger(), nil)
	return h
}
