package collab

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// LogNotifier delivers notifications to the structured log. It is the
// default notifier for deployments that have no notification transport
// configured; every send succeeds.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that writes to the given logger.
// A nil logger selects slog.Default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notifier")}
}

// Send logs the notification at info level.
func (n *LogNotifier) Send(ctx context.Context, channels, recipients []string, message string) error {
	n.logger.InfoContext(ctx, "notification dispatched",
		"channels", strings.Join(channels, ","),
		"recipients", strings.Join(recipients, ","),
		"message", message,
	)
	return nil
}

// UnconfiguredContractCaller rejects every call with a terminal error. It
// stands in when no contract execution backend is configured, so rules that
// reference contract actions fail loudly instead of silently succeeding.
type UnconfiguredContractCaller struct{}

// Call always fails.
func (UnconfiguredContractCaller) Call(ctx context.Context, contractAddress, functionName string, params map[string]interface{}, gasLimit uint64) (*TxResult, error) {
	return nil, NewTerminalError("no contract backend configured", fmt.Errorf("contract %s not callable", contractAddress))
}

// UnconfiguredWorkflowRunner rejects every start with a terminal error.
type UnconfiguredWorkflowRunner struct{}

// Start always fails.
func (UnconfiguredWorkflowRunner) Start(ctx context.Context, workflowID string, params map[string]interface{}) (string, error) {
	return "", NewTerminalError("no workflow backend configured", fmt.Errorf("workflow %s not startable", workflowID))
}
