package screens

import (
	"github.com/planificaia/aliada/internal/chat"
)

// Chat is a chat screen: the main assistant chat or the review session of one class.
type Chat struct {
	*chat.Simulator
}

// NewChat wraps a simulator and seeds its transcript with the given assistant and user lines.
func NewChat(simulator *chat.Simulator, seed ...chat.Message) (*Chat, error) {
	for _, m := range seed {
		if _, err := simulator.Append(m.Origin, m.Text); err != nil {
			return nil, err
		}
	}
	return &Chat{Simulator: simulator}, nil
}
