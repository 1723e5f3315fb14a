package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/relay/pkg/audit"
	"mercator-hq/relay/pkg/cli"
	"mercator-hq/relay/pkg/config"
)

var auditFlags struct {
	user    string
	session string
	outcome string
	since   time.Duration
	limit   int
	format  string
	days    int
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect and prune the exchange audit log",
	Long: `Inspect and prune the exchange audit log written by "relay run" when
audit.enabled is set. Prompts are never stored; records carry a SHA-256
fingerprint and the prompt length instead.

Subcommands:
  query  - List audit records with filters
  prune  - Delete records older than the retention period`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List audit records",
	Long: `List audit records, newest first.

Examples:
  # Last 20 exchanges of one user
  relay audit query --user u-123 --limit 20

  # Timeouts in the last hour as CSV
  relay audit query --outcome timeout --since 1h --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return queryAudit(cmd.Context(), cmd.OutOrStdout())
	},
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete records older than the retention period",
	Long: `Delete audit records older than audit.retention_days (or --days).

Examples:
  # Apply the configured retention now
  relay audit prune

  # Keep one week
  relay audit prune --days 7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := cli.SetupSignalHandler(cmd.Context())
		defer stop()
		return pruneAudit(ctx, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd)
	auditCmd.AddCommand(auditPruneCmd)

	auditQueryCmd.Flags().StringVar(&auditFlags.user, "user", "", "filter by user_id")
	auditQueryCmd.Flags().StringVar(&auditFlags.session, "session", "", "filter by session_id")
	auditQueryCmd.Flags().StringVar(&auditFlags.outcome, "outcome", "", "filter by outcome (success, timeout, connection_failure, ...)")
	auditQueryCmd.Flags().DurationVar(&auditFlags.since, "since", 0, "only records newer than this (e.g. 1h, 30m)")
	auditQueryCmd.Flags().IntVar(&auditFlags.limit, "limit", audit.DefaultQueryLimit, "maximum number of records")
	auditQueryCmd.Flags().StringVar(&auditFlags.format, "format", "text", "output format: text, json, csv")

	auditPruneCmd.Flags().IntVar(&auditFlags.days, "days", 0, "retention in days (default: audit.retention_days)")
}

// openAuditStorage opens the configured audit store. It fails when the
// audit log is disabled or kept in memory, since neither leaves anything
// to inspect from another process.
func openAuditStorage() (*config.Config, audit.Storage, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Audit.Enabled {
		return nil, nil, cli.NewConfigError("audit.enabled", "audit log is disabled")
	}
	if cfg.Audit.Backend == "memory" {
		return nil, nil, cli.NewConfigError("audit.backend", "the memory backend cannot be inspected from the command line")
	}

	store, err := audit.Open(cfg.Audit)
	if err != nil {
		return nil, nil, cli.NewCommandError("audit", err)
	}
	return cfg, store, nil
}

func queryAudit(ctx context.Context, w io.Writer) error {
	if auditFlags.limit <= 0 {
		return cli.NewConfigError("limit", "must be positive")
	}

	_, store, err := openAuditStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	filter := audit.Filter{
		UserID:    auditFlags.user,
		SessionID: auditFlags.session,
		Outcome:   auditFlags.outcome,
		Limit:     auditFlags.limit,
	}
	if auditFlags.since > 0 {
		filter.Since = time.Now().Add(-auditFlags.since)
	}

	records, err := store.Query(ctx, filter)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}

	switch auditFlags.format {
	case "text", "":
		return cli.NewFormatter(cli.FormatText).FormatTo(w, recordTable(records))
	case audit.FormatJSON, audit.FormatCSV:
		return audit.Export(w, auditFlags.format, records)
	default:
		return cli.NewConfigError("format", fmt.Sprintf("unknown format %q (want text, json or csv)", auditFlags.format))
	}
}

func pruneAudit(ctx context.Context, w io.Writer) error {
	cfg, store, err := openAuditStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	days := cfg.Audit.RetentionDays
	if auditFlags.days > 0 {
		days = auditFlags.days
	}
	if days <= 0 {
		fmt.Fprintln(w, "retention disabled, nothing pruned")
		return nil
	}

	pruner := audit.NewPruner(store, days)
	deleted, err := pruner.Prune(ctx)
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}

	fmt.Fprintf(w, "pruned %d records older than %s\n", deleted, pruner.Cutoff().Format(time.RFC3339))
	return nil
}

func recordTable(records []*audit.Record) *cli.Table {
	table := &cli.Table{
		Headers: []string{"created_at", "request_id", "user_id", "session_id", "outcome", "status", "latency_ms", "prompt_chars"},
	}
	for _, r := range records {
		table.Rows = append(table.Rows, []string{
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.RequestID,
			r.UserID,
			r.SessionID,
			r.Outcome,
			strconv.Itoa(r.StatusCode),
			strconv.FormatInt(r.UpstreamLatencyMS, 10),
			strconv.Itoa(r.PromptChars),
		})
	}
	return table
}
