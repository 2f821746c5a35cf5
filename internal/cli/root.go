package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nhle/jira-metrics/internal/logger"
	"github.com/nhle/jira-metrics/internal/model"
	"github.com/nhle/jira-metrics/internal/ui/progress"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// Flags shared by every command.
var (
	configPath   string
	debugFlag    bool
	plainFlag    bool
	usernameFlag string
	passwordFlag string
	jqlFlag      string
	batchSize    int
	rememberFlag bool
)

// log is configured once flags are parsed.
var log = zerolog.Nop()

var rootCmd = &cobra.Command{
	Use:   "jirametrics",
	Short: "Extract per-stage cycle time metrics from Jira",
	Long: `jirametrics queries Jira with a JQL filter, reconstructs how long every
matching issue spent in each workflow status from its changelog, and writes
one CSV row per issue.

Connection details, the filter and extra attribute columns are read from a
YAML configuration file; most of them can be overridden with flags or
JIRAMETRICS_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		interactive := !plainFlag && progress.IsTerminal(os.Stderr)
		log = logger.New(os.Stderr, debugFlag, interactive)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "jirametrics %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "i", model.DefaultConfigPath, "Path to the YAML configuration file")
	flags.BoolVarP(&debugFlag, "debug", "d", false, "Enable debug logging")
	flags.BoolVar(&plainFlag, "plain", false, "Disable the progress display and colored logs")
	flags.StringVarP(&usernameFlag, "username", "u", "", "Jira username (overrides the config file)")
	flags.StringVarP(&passwordFlag, "password", "p", "", "Jira password or API token (overrides the config file)")
	flags.StringVar(&jqlFlag, "jql", "", "JQL filter (overrides the config file)")
	flags.IntVar(&batchSize, "batch-size", 0, "Issues per page (overrides the config file)")
	flags.BoolVar(&rememberFlag, "remember", false, "Save a prompted password in the system keyring")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. An interrupt cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
