package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/jira-metrics/internal/export"
	"github.com/nhle/jira-metrics/internal/extract"
	"github.com/nhle/jira-metrics/internal/metrics"
	"github.com/nhle/jira-metrics/internal/model"
	"github.com/nhle/jira-metrics/internal/source"
	"github.com/nhle/jira-metrics/internal/store"
	"github.com/nhle/jira-metrics/internal/theme"
	"github.com/nhle/jira-metrics/internal/ui/progress"
)

var outputPath string

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract stage metrics into a CSV file",
	Long: `Run the configured JQL, follow every result page and write one CSV row
per issue with the days spent, first entry time and re-entry count for each
workflow status, followed by the configured attribute columns.

The file is only written once every page has been fetched. It is then
uploaded to the configured S3 bucket or IMAP mailbox, if any.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

// extractResult collects what a run produced for the summary and history.
type extractResult struct {
	items    []model.WorkItem
	stats    extract.Stats
	stages   int
	uploaded []string
}

func runExtract(ctx context.Context, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}
	if outputPath != "" {
		cfg.Output.Path = outputPath
	}

	creds, err := resolveCredentials(cfg)
	if err != nil {
		return err
	}

	history := openRunHistory(ctx, cfg)
	if history != nil {
		defer history.Close()
	}

	recorder := metrics.NewRecorder()
	started := now()

	res, runErr := extractAndWrite(ctx, cfg, creds, recorder, errOut)

	status := model.RunStatusSucceeded
	if runErr != nil {
		status = model.RunStatusFailed
	}
	recorder.Finish(status, now().Sub(started), now())
	history.finish(ctx, status, res, runErr)
	pushMetrics(ctx, cfg, recorder)

	if runErr != nil {
		return runErr
	}

	printSummary(out, cfg, res, now().Sub(started))
	return nil
}

func extractAndWrite(
	ctx context.Context,
	cfg *model.ExtractorConfig,
	creds source.Credentials,
	recorder *metrics.Recorder,
	errOut io.Writer,
) (extractResult, error) {
	var res extractResult

	display := errOut
	if plainFlag || debugFlag {
		display = io.Discard
	}

	src := newSource(cfg, log)
	err := progress.Run(ctx, display, "extracting", func(ctx context.Context, obs extract.Observer) error {
		p := extract.New(src, extract.Options{
			Endpoint:    cfg.Connection.URL,
			Filter:      cfg.Criteria.JQL,
			PageSize:    cfg.BatchSize,
			Credentials: creds,
			Attributes:  cfg.Attributes,
			Now:         now,
		}, log, recorder, obs)

		items, err := p.ExtractAll(ctx)
		res.stats = p.Stats()
		res.items = items
		return err
	})
	if err != nil {
		return res, err
	}

	labels := cfg.AttributeLabels()
	res.stages = len(export.StageNames(res.items))
	data := []byte(export.Serialize(res.items, labels))

	if err := os.WriteFile(cfg.Output.Path, data, 0o644); err != nil {
		return res, fmt.Errorf("writing %s: %w", cfg.Output.Path, err)
	}
	log.Info().
		Str("path", cfg.Output.Path).
		Int("items", len(res.items)).
		Int("stages", res.stages).
		Msg("wrote report")

	pubs, err := newPublishers(ctx, cfg.Upload)
	if err != nil {
		return res, fmt.Errorf("configuring upload: %w", err)
	}
	for _, pub := range pubs {
		loc, err := pub.Publish(ctx, cfg.Output.Path, data)
		if err != nil {
			return res, fmt.Errorf("uploading via %s: %w", pub.Name(), err)
		}
		log.Info().Str("destination", loc).Msg("uploaded report")
		res.uploaded = append(res.uploaded, loc)
	}

	return res, nil
}

// runHistory records a run in the history store. A nil runHistory is a no-op.
type runHistory struct {
	store store.Store
	run   model.Run
}

// openRunHistory starts a history record. History problems never fail
// an extraction.
func openRunHistory(ctx context.Context, cfg *model.ExtractorConfig) *runHistory {
	if cfg.History.Path == "" {
		return nil
	}

	s, err := openHistory(cfg.History.Path)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.History.Path).Msg("run history unavailable")
		return nil
	}

	run := model.Run{
		StartedAt:  now(),
		Endpoint:   cfg.Connection.URL,
		JQL:        cfg.Criteria.JQL,
		OutputPath: cfg.Output.Path,
	}
	id, err := s.CreateRun(ctx, run)
	if err != nil {
		log.Warn().Err(err).Msg("could not record run")
		s.Close()
		return nil
	}
	run.ID = id

	return &runHistory{store: s, run: run}
}

func (h *runHistory) finish(ctx context.Context, status string, res extractResult, runErr error) {
	if h == nil {
		return
	}

	finished := now()
	h.run.FinishedAt = &finished
	h.run.Status = status
	h.run.Pages = res.stats.Pages
	h.run.MalformedPages = res.stats.MalformedPages
	h.run.Items = len(res.items)
	h.run.Stages = res.stages
	h.run.UploadedTo = strings.Join(res.uploaded, " ")
	if runErr != nil {
		h.run.Error = runErr.Error()
	}

	if err := h.store.FinishRun(ctx, h.run); err != nil {
		log.Warn().Err(err).Str("run", h.run.ID).Msg("could not record run outcome")
	}
}

func (h *runHistory) Close() {
	if h == nil {
		return
	}
	if err := h.store.Close(); err != nil {
		log.Debug().Err(err).Msg("closing run history")
	}
}

func pushMetrics(ctx context.Context, cfg *model.ExtractorConfig, recorder *metrics.Recorder) {
	if cfg.Metrics.PushgatewayURL == "" {
		return
	}
	host, _ := os.Hostname()
	if err := recorder.Push(ctx, cfg.Metrics.PushgatewayURL, host); err != nil {
		log.Warn().Err(err).Msg("metrics push failed")
	}
}

func printSummary(out io.Writer, cfg *model.ExtractorConfig, res extractResult, elapsed time.Duration) {
	fmt.Fprintln(out, theme.SuccessStyle.Render("Extraction complete"))
	row := func(label, value string) {
		fmt.Fprintf(out, "  %s%s\n", theme.LabelStyle.Render(label), value)
	}
	row("Items", fmt.Sprintf("%d", len(res.items)))
	row("Stages", fmt.Sprintf("%d", res.stages))
	row("Pages", fmt.Sprintf("%d", res.stats.Pages))
	if res.stats.MalformedPages > 0 {
		row("Skipped pages", theme.WarningStyle.Render(fmt.Sprintf("%d", res.stats.MalformedPages)))
	}
	if res.stats.Duplicates > 0 {
		row("Duplicates", fmt.Sprintf("%d", res.stats.Duplicates))
	}
	row("Output", cfg.Output.Path)
	for _, loc := range res.uploaded {
		row("Uploaded", loc)
	}
	row("Elapsed", elapsed.Round(time.Millisecond).String())
}

func init() {
	extractCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output CSV path (overrides the config file)")
	rootCmd.AddCommand(extractCmd)
}
