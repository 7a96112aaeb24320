package lottery

import (
	"math/big"
	"sync"

	"github.com/airchains-network/lottery-dapp/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// Binding is everything that exists only while a wallet is connected. It is
// immutable; changes replace the whole binding.
type Binding struct {
	Account  common.Address
	ChainID  *big.Int
	Contract Contract
	Reader   *StateReader
}

// SessionStore keeps the few facts that outlive a single operation but not
// the session itself
type SessionStore interface {
	ManagerConnected() (bool, error)
	MarkManagerConnected() error
	RecordDraw(d *Draw) error
}

// Session owns the provider and the current binding. Connect, disconnect,
// account and chain changes swap the binding atomically; operations take a
// reference once and use it throughout.
type Session struct {
	mu          sync.RWMutex
	provider    wallet.Provider
	binding     *Binding
	subscribers []func(*Binding)
}

// NewSession wraps provider, which may be nil when no wallet is configured
func NewSession(provider wallet.Provider) *Session {
	return &Session{provider: provider}
}

// Provider returns the wallet capability or ErrNoProvider
func (s *Session) Provider() (wallet.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.provider == nil {
		return nil, ErrNoProvider
	}
	return s.provider, nil
}

// Binding returns the current binding or ErrNotConnected
func (s *Session) Binding() (*Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.provider == nil {
		return nil, ErrNoProvider
	}
	if s.binding == nil {
		return nil, ErrNotConnected
	}
	return s.binding, nil
}

// Replace installs b and notifies subscribers
func (s *Session) Replace(b *Binding) {
	s.mu.Lock()
	s.binding = b
	subs := append([]func(*Binding){}, s.subscribers...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(b)
	}
}

// Reset drops the binding; subscribers see nil
func (s *Session) Reset() {
	s.Replace(nil)
}

// Subscribe registers fn to be called after every Replace or Reset
func (s *Session) Subscribe(fn func(*Binding)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}
