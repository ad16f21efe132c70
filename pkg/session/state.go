package session

// ConnState is the connection lifecycle state. Transitions are driven
// only by transport events (Dial, read-loop exit, Close), never by
// message content.
type ConnState int

const (
	// StateDisconnected is the initial state, and the terminal state
	// after a deliberate Close or a clean peer shutdown.
	StateDisconnected ConnState = iota
	// StateConnecting covers the websocket handshake.
	StateConnecting
	// StateConnected means the read loop is running.
	StateConnected
	// StateError is the terminal state after a transport failure.
	StateError
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	}
	return "unknown"
}
