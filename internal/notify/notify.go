package notify

import (
	"context"

	"github.com/pricewatch/pricewatch/internal/logger"
)

// Alert describes a reached price target.
type Alert struct {
	UserID       string
	ProductName  string
	ProductURL   string
	CurrentPrice int
	TargetPrice  int
}

// Notifier delivers price alerts. Delivery is fire-and-forget: callers
// log failures and move on.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the log instead of an external channel.
// It stands in for a real sender (WhatsApp, email) in deployments that
// have none configured.
type LogNotifier struct {
	logger logger.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

func (n *LogNotifier) Send(_ context.Context, alert Alert) error {
	n.logger.Info("price alert",
		logger.String("user_id", alert.UserID),
		logger.String("product", alert.ProductName),
		logger.String("url", alert.ProductURL),
		logger.Int("current_price", alert.CurrentPrice),
		logger.Int("target_price", alert.TargetPrice))
	return nil
}
