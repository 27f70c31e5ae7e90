package tui

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/M3kH/gigi-sub006/internal/adapter/realtime"
	"github.com/M3kH/gigi-sub006/internal/domain"
	"github.com/M3kH/gigi-sub006/internal/usecase/chat"
)

// Run starts the TUI and pumps connection events into it. It blocks until the
// user quits, the context is canceled, or the terminal is lost.
func Run(ctx context.Context, conn *realtime.Conn, dispatch *chat.Dispatcher, logger *slog.Logger) error {
	model := NewModel(dispatch, logger)
	program := tea.NewProgram(model, tea.WithAltScreen())

	unsubMsg := conn.OnMessage(func(msg domain.ServerMessage) {
		program.Send(ServerMsg{Message: msg})
	})
	defer unsubMsg()

	unsubState := conn.OnStateChange(func(state realtime.State) {
		program.Send(ConnStateMsg{State: state})
	})
	defer unsubState()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			program.Send(QuitMsg{})
		case <-done:
		}
	}()

	_, err := program.Run()
	return err
}
