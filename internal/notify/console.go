package notify

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleChannel logs notifications instead of delivering them. Used in
// development and wherever no mail credentials are configured.
type ConsoleChannel struct {
	logger *zap.Logger
}

// NewConsoleChannel constructs the channel.
func NewConsoleChannel(logger *zap.Logger) *ConsoleChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleChannel{logger: logger}
}

// Deliver writes the message to the log.
func (c *ConsoleChannel) Deliver(_ context.Context, msg Message) error {
	c.logger.Info("notification",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}
