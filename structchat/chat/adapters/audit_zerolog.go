package adapters

import (
	"context"
	"sync"

	ports "github.com/ZanzyTHEbar/structchat/structchat/chat/ports"
	"github.com/rs/zerolog"
)

// ZerologAuditSink buffers audit lines per session and writes them through
// zerolog on Flush.
type ZerologAuditSink struct {
	mu      sync.Mutex
	logger  zerolog.Logger
	pending map[string][]string
}

// NewZerologAuditSink creates a new zerolog audit sink.
func NewZerologAuditSink(logger zerolog.Logger) *ZerologAuditSink {
	return &ZerologAuditSink{
		logger:  logger.With().Str("component", "audit").Logger(),
		pending: make(map[string][]string),
	}
}

// Log buffers one line for session.
func (s *ZerologAuditSink) Log(ctx context.Context, session, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[session] = append(s.pending[session], line)
}

// Flush writes the buffered lines for session in order and empties the buffer.
func (s *ZerologAuditSink) Flush(ctx context.Context, session string) error {
	s.mu.Lock()
	lines := s.pending[session]
	delete(s.pending, session)
	s.mu.Unlock()

	for i, line := range lines {
		s.logger.Info().
			Str("session", session).
			Int("seq", i).
			Msg(line)
	}
	return nil
}

// Pending returns the number of unflushed lines for session.
func (s *ZerologAuditSink) Pending(session string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending[session])
}

// Ensure ZerologAuditSink implements the AuditSink interface.
var _ ports.AuditSink = (*ZerologAuditSink)(nil)
