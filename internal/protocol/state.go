package protocol

import "sync"

type State int

const (
	Handshaking State = iota
	Status
	Login
	Play
)

func (s State) String() string {
	switch s {
	case Handshaking:
		return "handshaking"
	case Status:
		return "status"
	case Login:
		return "login"
	case Play:
		return "play"
	default:
		return "unknown"
	}
}

// ConnState is shared by both relay directions of one connection.
type ConnState struct {
	mu        sync.Mutex
	state     State
	threshold int
}

func NewConnState() *ConnState {
	return &ConnState{
		threshold: -1,
	}
}

func (cs *ConnState) Set(state State) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.state = state
}

func (cs *ConnState) Get() State {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.state
}

// SetThreshold enables compression at t bytes; a negative t disables it.
func (cs *ConnState) SetThreshold(t int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.threshold = t
}

func (cs *ConnState) GetThreshold() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.threshold
}
