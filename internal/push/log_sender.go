package push

import (
	"context"

	"go.uber.org/zap"

	"github.com/wattrewards/wattrewards/pkg/logger"
)

// LogSender records pushes in the application log instead of delivering them.
// It is selected when no push provider credentials are configured.
type LogSender struct {
	log *zap.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender() *LogSender {
	return &LogSender{log: logger.WithModule("push")}
}

// Send logs the message and always succeeds.
func (s *LogSender) Send(_ context.Context, token string, msg Message) error {
	s.log.Info("push delivery skipped (log provider)",
		zap.String("token_suffix", tokenSuffix(token)),
		zap.String("title", msg.Title),
	)
	return nil
}

func tokenSuffix(token string) string {
	if len(token) <= 6 {
		return token
	}
	return token[len(token)-6:]
}
