package tui

import (
	"github.com/M3kH/gigi-sub006/internal/adapter/realtime"
	"github.com/M3kH/gigi-sub006/internal/domain"
)

// ServerMsg wraps one decoded inbound message injected from the connection's
// read goroutine into the Bubble Tea loop. The loop applies these one at a
// time, which keeps reducer calls serialized.
type ServerMsg struct {
	Message domain.ServerMessage
}

// ConnStateMsg reports a connection state transition.
type ConnStateMsg struct {
	State realtime.State
}

// QuitMsg asks the program to exit.
type QuitMsg struct{}
