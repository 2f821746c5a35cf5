package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/jira-metrics/internal/model"
	"github.com/nhle/jira-metrics/internal/store"
	"github.com/nhle/jira-metrics/internal/theme"
)

var (
	runsLimit  int
	runsStatus string
	runsJSON   bool
)

var runsCmd = &cobra.Command{
	Use:   "runs [id]",
	Short: "List recorded extraction runs",
	Long: `Show the run history recorded by previous extractions, newest first.
Pass a run ID to show a single run in detail.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		return runRuns(cmd.Context(), cmd.OutOrStdout(), id)
	},
}

func runRuns(ctx context.Context, out io.Writer, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return fmt.Errorf("run history is disabled (History.Path is empty)")
	}

	s, err := openHistory(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer s.Close()

	var runs []model.Run
	if id != "" {
		run, err := s.GetRunByID(ctx, id)
		if err != nil {
			return err
		}
		runs = []model.Run{*run}
	} else {
		filter := store.RunFilter{Limit: runsLimit}
		if runsStatus != "" {
			filter.Status = &runsStatus
		}
		runs, err = s.GetRuns(ctx, filter)
		if err != nil {
			return err
		}
	}

	if runsJSON {
		data, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return fmt.Errorf("formatting runs as JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, theme.HelpStyle.Render("No runs recorded."))
		return nil
	}

	if id != "" {
		printRun(out, runs[0])
		return nil
	}

	fmt.Fprintf(out, "%-36s  %-20s  %-9s  %6s  %5s  %s\n", "ID", "STARTED", "STATUS", "ITEMS", "PAGES", "JQL")
	for _, r := range runs {
		fmt.Fprintf(out, "%-36s  %-20s  %s  %6d  %5d  %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			theme.RunStatusStyle(r.Status).Width(9).Render(r.Status),
			r.Items,
			r.Pages,
			r.JQL,
		)
	}
	return nil
}

func printRun(out io.Writer, r model.Run) {
	row := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(out, "%s%s\n", theme.LabelStyle.Render(label), value)
	}
	row("ID", r.ID)
	row("Status", theme.RunStatusStyle(r.Status).Render(r.Status))
	row("Started", r.StartedAt.Local().Format(time.RFC3339))
	if r.FinishedAt != nil {
		row("Finished", r.FinishedAt.Local().Format(time.RFC3339))
		row("Duration", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String())
	}
	row("Endpoint", r.Endpoint)
	row("JQL", r.JQL)
	row("Items", fmt.Sprintf("%d", r.Items))
	row("Stages", fmt.Sprintf("%d", r.Stages))
	row("Pages", fmt.Sprintf("%d (%d skipped)", r.Pages, r.MalformedPages))
	row("Output", r.OutputPath)
	row("Uploaded", r.UploadedTo)
	if r.Error != "" {
		row("Error", theme.ErrorStyle.Render(r.Error))
	}
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to show")
	runsCmd.Flags().StringVar(&runsStatus, "status", "", "Only show runs with this status (running, succeeded, failed)")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "Output runs as JSON")
	rootCmd.AddCommand(runsCmd)
}
