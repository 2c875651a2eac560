package notify

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ramonbnuezjr/stock-tracker-agent/pkg/models"
)

// Notifier delivers a single alert over one channel.
type Notifier interface {
	Send(alert models.Alert) error
}

// SendAll delivers alerts through the notifier and returns the number
// delivered. Delivery failures are logged per alert and never abort the
// batch.
func SendAll(n Notifier, alerts []models.Alert, logger *logrus.Logger) int {
	sent := 0
	for _, alert := range alerts {
		if err := n.Send(alert); err != nil {
			logger.WithError(err).WithField("symbol", alert.Symbol).Error("Failed to send alert")
			continue
		}
		sent++
	}
	return sent
}

// Console writes alerts to stdout.
type Console struct{}

func (Console) Send(alert models.Alert) error {
	_, err := fmt.Fprint(os.Stdout, renderAlert(alert))
	return err
}

func renderAlert(alert models.Alert) string {
	var b strings.Builder

	arrow := "▲"
	if alert.ChangePercent.IsNegative() {
		arrow = "▼"
	}

	fmt.Fprintf(&b, "%s %s %s%% ($%s -> $%s)\n",
		arrow,
		alert.Symbol,
		alert.ChangePercent.StringFixed(2),
		alert.PreviousPrice.StringFixed(2),
		alert.CurrentPrice.StringFixed(2),
	)

	if alert.Explanation != "" {
		fmt.Fprintf(&b, "  %s\n", alert.Explanation)
	}
	for _, headline := range alert.Headlines {
		fmt.Fprintf(&b, "  - %s\n", headline)
	}

	return b.String()
}
