package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/coolwithyou/studiobaton.live-sub000/internal/collector"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/harvest"
	"github.com/coolwithyou/studiobaton.live-sub000/internal/models"
)

// operator is the subset of harvest.Service the CLI drives.
type operator interface {
	Run(ctx context.Context, req harvest.RunRequest) (*models.CollectionResult, error)
	RunToday(ctx context.Context) (*models.CollectionResult, error)
	Ledger(ctx context.Context, repository string) ([]*models.CollectionLogEntry, error)
	Reset(ctx context.Context, repository string) (int64, error)
	RateLimit(ctx context.Context) models.RateLimitStatus
}

type opener func(ctx context.Context) (operator, func() error, error)

func newRootCommand(open opener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "collector",
		Short: "Collect an organization's commit history into Postgres",
		Long: `collector runs and inspects month-partitioned commit collection.

Commands:
  run        Collect a date range
  today      Collect the current day with details
  ledger     Show the collection log
  reset      Delete collection log entries so months are collected again
  ratelimit  Show the GitHub API quota`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newRunCommand(open),
		newTodayCommand(open),
		newLedgerCommand(open),
		newResetCommand(open),
		newRateLimitCommand(open, time.Now),
	)
	return rootCmd
}

// withOperator opens the service for the duration of one command.
func withOperator(cmd *cobra.Command, open opener, fn func(ctx context.Context, op operator) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	op, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	return fn(ctx, op)
}

func newRunCommand(open opener) *cobra.Command {
	var (
		start, end string
		details    bool
	)

	cobraCmd := &cobra.Command{
		Use:   "run",
		Short: "Collect commits between --start and --end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := collector.ParseDate(start, false)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			to, err := collector.ParseDate(end, true)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}

			return withOperator(cmd, open, func(ctx context.Context, op operator) error {
				result, err := op.Run(ctx, harvest.RunRequest{Start: from, End: to, IncludeDetails: details})
				if result != nil {
					renderResult(cmd.OutOrStdout(), result)
				}
				return err
			})
		},
	}

	cobraCmd.Flags().StringVar(&start, "start", "", "First day to collect (YYYY-MM-DD or RFC3339)")
	cobraCmd.Flags().StringVar(&end, "end", "", "Last day to collect, inclusive (YYYY-MM-DD or RFC3339)")
	cobraCmd.Flags().BoolVar(&details, "details", false, "Fetch stats and changed files for new commits")
	_ = cobraCmd.MarkFlagRequired("start")
	_ = cobraCmd.MarkFlagRequired("end")

	return cobraCmd
}

func newTodayCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Collect the current day, including commit details",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withOperator(cmd, open, func(ctx context.Context, op operator) error {
				result, err := op.RunToday(ctx)
				if result != nil {
					renderResult(cmd.OutOrStdout(), result)
				}
				return err
			})
		},
	}
}

func newLedgerCommand(open opener) *cobra.Command {
	var repo string

	cobraCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Show the collection log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withOperator(cmd, open, func(ctx context.Context, op operator) error {
				entries, err := op.Ledger(ctx, repo)
				if err != nil {
					return err
				}
				renderLedger(cmd.OutOrStdout(), entries)
				return nil
			})
		},
	}

	cobraCmd.Flags().StringVar(&repo, "repo", "", "Only show this repository")
	return cobraCmd
}

func newResetCommand(open opener) *cobra.Command {
	var (
		repo string
		all  bool
	)

	cobraCmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete collection log entries so the next run collects those months again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if repo == "" && !all {
				return fmt.Errorf("pass --repo or --all")
			}
			if repo != "" && all {
				return fmt.Errorf("--repo and --all are mutually exclusive")
			}

			return withOperator(cmd, open, func(ctx context.Context, op operator) error {
				deleted, err := op.Reset(ctx, repo)
				if err != nil {
					return err
				}
				target := repo
				if target == "" {
					target = "all repositories"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s collection log entries for %s\n", humanize.Comma(deleted), target)
				return nil
			})
		},
	}

	cobraCmd.Flags().StringVar(&repo, "repo", "", "Repository to reset")
	cobraCmd.Flags().BoolVar(&all, "all", false, "Reset every repository")
	return cobraCmd
}

func newRateLimitCommand(open opener, now func() time.Time) *cobra.Command {
	return &cobra.Command{
		Use:   "ratelimit",
		Short: "Show the GitHub core API quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withOperator(cmd, open, func(ctx context.Context, op operator) error {
				renderRateLimit(cmd.OutOrStdout(), op.RateLimit(ctx), now())
				return nil
			})
		},
	}
}

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Format.Footer = text.FormatDefault
	return tbl
}

func renderResult(w io.Writer, result *models.CollectionResult) {
	perRepo := make(map[string]int)
	for _, c := range result.Commits {
		perRepo[c.Repository]++
	}
	repos := make([]string, 0, len(perRepo))
	for repo := range perRepo {
		repos = append(repos, repo)
	}
	sort.Strings(repos)

	fmt.Fprintf(w, "Run %s\n", result.RunID)

	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Repository", "New commits"})
	for _, repo := range repos {
		tbl.AppendRow(table.Row{repo, humanize.Comma(int64(perRepo[repo]))})
	}
	tbl.AppendFooter(table.Row{
		"Total",
		fmt.Sprintf("%s new / %s fetched", humanize.Comma(int64(len(result.Commits))), humanize.Comma(int64(result.TotalProcessed))),
	})
	tbl.Render()

	if !result.FinishedAt.IsZero() && !result.StartedAt.IsZero() {
		fmt.Fprintf(w, "Took %s\n", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(w, "%d partition errors:\n", len(result.Errors))
		for _, msg := range result.Errors {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}
}

func renderLedger(w io.Writer, entries []*models.CollectionLogEntry) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Repository", "Month", "Status", "Commits", "Collected", "Error"})

	counts := make(map[models.CollectionStatus]int)
	for _, e := range entries {
		counts[e.Status]++
		msg := ""
		if e.ErrorMessage != nil {
			msg = *e.ErrorMessage
		}
		tbl.AppendRow(table.Row{
			e.Repository,
			e.MonthKey,
			string(e.Status),
			humanize.Comma(int64(e.CommitCount)),
			e.CollectedAt.UTC().Format(time.RFC3339),
			msg,
		})
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("Total: %d", len(entries)),
		"",
		fmt.Sprintf("%d completed, %d partial, %d error",
			counts[models.StatusCompleted], counts[models.StatusPartial], counts[models.StatusError]),
	})
	tbl.Render()
}

func renderRateLimit(w io.Writer, status models.RateLimitStatus, now time.Time) {
	fmt.Fprintf(w, "Remaining: %s / %s (used %s)\n",
		humanize.Comma(int64(status.Remaining)),
		humanize.Comma(int64(status.Limit)),
		humanize.Comma(int64(status.Used)))
	fmt.Fprintf(w, "Resets:    %s (%s)\n",
		status.Reset.UTC().Format(time.RFC3339),
		humanize.RelTime(status.Reset, now, "ago", "from now"))
	if status.Limit == 0 {
		fmt.Fprintln(w, "Quota could not be read; assuming none left.")
	}
}
