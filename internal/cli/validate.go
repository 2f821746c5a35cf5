package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nhle/jira-metrics/internal/extract"
	"github.com/nhle/jira-metrics/internal/theme"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the connection and JQL without extracting",
	Long: `Send a single one-issue probe request with the configured connection and
JQL. Exits non-zero when the endpoint is unreachable, the credentials are
rejected, Jira reports the JQL as invalid, or the JQL matches no issues.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.Context(), cmd.OutOrStdout())
	},
}

func runValidate(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}
	creds, err := resolveCredentials(cfg)
	if err != nil {
		return err
	}

	p := extract.New(newSource(cfg, log), extract.Options{
		Endpoint:    cfg.Connection.URL,
		Filter:      cfg.Criteria.JQL,
		PageSize:    cfg.BatchSize,
		Credentials: creds,
		Attributes:  cfg.Attributes,
		Now:         now,
	}, log)
	if err := p.Validate(ctx); err != nil {
		return err
	}

	fmt.Fprintln(out, theme.SuccessStyle.Render("Configuration is valid"))
	fmt.Fprintf(out, "  %s%s\n", theme.LabelStyle.Render("Endpoint"), cfg.Connection.URL)
	fmt.Fprintf(out, "  %s%s\n", theme.LabelStyle.Render("JQL"), cfg.Criteria.JQL)
	return nil
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
