// Package logging builds the process logger with PII redaction.
//
// Trigger data flowing through the engine carries customer identifiers:
// email addresses, account and card numbers, national IDs. The redacting
// handler masks those before log entries reach the output stream, both by
// value pattern and by sensitive attribute key.
//
//	logger, err := logging.New(&cfg.Telemetry.Logging, nil)
//	if err != nil {
//	    return err
//	}
//	logger.Info("trigger received",
//	    "counterparty_email", "a.jensen@example.com", // a***@example.com
//	    "account", "DE89370400440532013000",          // DE89***
//	)
//
// Redaction applies only at the handler boundary; callers log plain values
// and the rest of the codebase keeps using *slog.Logger.
package logging
