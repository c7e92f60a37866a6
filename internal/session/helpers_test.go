package session

import (
	"time"

	"github.com/muurk/ledbench/internal/broadcast"
)

func newTestListener(s *Session) *broadcast.Listener {
	return broadcast.NewListener(broadcast.Config{ReadTimeout: 50 * time.Millisecond}, s.forwardListenerEvent)
}
