package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clearline-hq/gatekeeper/pkg/audit"
	"clearline-hq/gatekeeper/pkg/audit/storage"
	"clearline-hq/gatekeeper/pkg/cli"
	"clearline-hq/gatekeeper/pkg/config"
)

var auditFlags struct {
	ruleID         string
	triggerType    string
	status         string
	idempotencyKey string
	timeRange      string
	limit          int
	offset         int
	format         string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail",
	Long:  `Query recorded rule execution contexts from the audit store.`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query execution contexts",
	Long: `Query execution contexts from the audit store.

Examples:
  # Recent executions of one rule
  gatekeeper audit query --rule-id sanctions-check --limit 50

  # Failures in a time window
  gatekeeper audit query --status failed --time-range "2026-08-01T00:00:00Z/2026-08-30T00:00:00Z"

  # JSON output
  gatekeeper audit query --trigger-type transaction --format json

  # CSV export for compliance review
  gatekeeper audit query --rule-id sanctions-check --format csv > executions.csv`,
	RunE: queryAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd)

	auditQueryCmd.Flags().StringVar(&auditFlags.ruleID, "rule-id", "", "filter by rule ID")
	auditQueryCmd.Flags().StringVar(&auditFlags.triggerType, "trigger-type", "", "filter by trigger type")
	auditQueryCmd.Flags().StringVar(&auditFlags.status, "status", "", "filter by execution status")
	auditQueryCmd.Flags().StringVar(&auditFlags.idempotencyKey, "idempotency-key", "", "filter by idempotency key")
	auditQueryCmd.Flags().StringVar(&auditFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
	auditQueryCmd.Flags().IntVar(&auditFlags.limit, "limit", 100, "max results")
	auditQueryCmd.Flags().IntVar(&auditFlags.offset, "offset", 0, "pagination offset")
	auditQueryCmd.Flags().StringVar(&auditFlags.format, "format", "text", "output format: text, json, csv")
}

func queryAudit(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	if cfg.Audit.Backend != "sqlite" {
		return fmt.Errorf("audit query requires a sqlite audit backend, configured backend is %q", cfg.Audit.Backend)
	}

	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
		Path:         cfg.Audit.SQLite.Path,
		MaxOpenConns: 2,
		MaxIdleConns: 1,
		WALMode:      true,
		BusyTimeout:  cfg.Audit.SQLite.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to open audit store: %w", err)
	}
	defer store.Close()

	query := &audit.Query{
		RuleID:         auditFlags.ruleID,
		TriggerType:    auditFlags.triggerType,
		Status:         audit.ExecutionStatus(auditFlags.status),
		IdempotencyKey: auditFlags.idempotencyKey,
		Limit:          auditFlags.limit,
		Offset:         auditFlags.offset,
	}
	if auditFlags.timeRange != "" {
		start, end, err := parseTimeRange(auditFlags.timeRange)
		if err != nil {
			return err
		}
		query.StartTime = &start
		query.EndTime = &end
	}

	ctx, cancel := context.WithTimeout(cli.SetupSignalHandler(context.Background()), 30*time.Second)
	defer cancel()

	records, err := store.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}

	switch cli.OutputFormat(auditFlags.format) {
	case cli.FormatJSON:
		formatter := &cli.JSONFormatter{Indent: true}
		return formatter.FormatTo(os.Stdout, records)
	case cli.FormatCSV:
		formatter := &cli.CSVFormatter{}
		return formatter.FormatTo(os.Stdout, executionTable(records))
	}

	if len(records) == 0 {
		fmt.Println("no matching execution contexts")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%s  %-24s  %-12s  matched=%-5t  outcome=%s\n",
			rec.StartTime.Format(time.RFC3339),
			rec.RuleID,
			rec.Status,
			rec.Matched,
			rec.Outcome,
		)
	}
	fmt.Printf("\n%d execution contexts\n", len(records))
	return nil
}

// executionTable adapts query results to the CSV formatter.
type executionTable []*audit.RuleExecutionContext

func (t executionTable) Headers() []string {
	return []string{"execution_id", "rule_id", "trigger_type", "start_time", "status", "matched", "outcome", "idempotency_key"}
}

func (t executionTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, rec := range t {
		rows = append(rows, []string{
			rec.ExecutionID,
			rec.RuleID,
			rec.Trigger.Type,
			rec.StartTime.Format(time.RFC3339),
			string(rec.Status),
			fmt.Sprintf("%t", rec.Matched),
			rec.Outcome,
			rec.IdempotencyKey,
		})
	}
	return rows
}

// parseTimeRange parses an RFC3339 interval of the form "start/end".
func parseTimeRange(s string) (time.Time, time.Time, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("time range must be of the form start/end")
	}
	start, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}
	return start, end, nil
}
