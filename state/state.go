package state

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/airchains-network/lottery-dapp/db"
	"github.com/airchains-network/lottery-dapp/lottery"
)

const (
	drawPrefix          = "draw:"
	managerConnectedKey = "managerConnected"
)

// SessionState holds the facts kept for the lifetime of one session: the
// manager-first flag and the draws completed so far
type SessionState struct {
	db db.DB

	mu  sync.Mutex
	seq uint64
}

func NewSessionState(store db.DB) *SessionState {
	return &SessionState{db: store}
}

// ManagerConnected reports whether the manager has connected in this session
func (s *SessionState) ManagerConnected() (bool, error) {
	data, err := s.db.Get([]byte(managerConnectedKey))
	if err != nil {
		return false, fmt.Errorf("failed to get manager flag: %v", err)
	}
	return string(data) == "true", nil
}

func (s *SessionState) MarkManagerConnected() error {
	return s.db.Put([]byte(managerConnectedKey), []byte("true"))
}

// RecordDraw appends d to the draw history
func (s *SessionState) RecordDraw(d *lottery.Draw) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode draw: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	key := fmt.Sprintf("%s%020d", drawPrefix, s.seq)
	return s.db.Put([]byte(key), data)
}

// Draws returns the recorded draws, oldest first
func (s *SessionState) Draws() ([]*lottery.Draw, error) {
	draws := []*lottery.Draw{}
	err := s.db.ForEachPrefix([]byte(drawPrefix), func(key, value []byte) error {
		var d lottery.Draw
		if err := json.Unmarshal(value, &d); err != nil {
			return fmt.Errorf("failed to decode draw %s: %v", key, err)
		}
		draws = append(draws, &d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return draws, nil
}

func (s *SessionState) Close() error {
	return s.db.Close()
}
