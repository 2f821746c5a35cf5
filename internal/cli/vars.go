package cli

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/jira-metrics/internal/credential"
	"github.com/nhle/jira-metrics/internal/model"
	"github.com/nhle/jira-metrics/internal/publish"
	"github.com/nhle/jira-metrics/internal/source"
	"github.com/nhle/jira-metrics/internal/source/jira"
	"github.com/nhle/jira-metrics/internal/store"
	"github.com/nhle/jira-metrics/internal/ui/progress"
	"github.com/nhle/jira-metrics/internal/ui/prompt"
)

const requestTimeout = 60 * time.Second

// Collaborators, replaced in tests.
var (
	newSource = func(cfg *model.ExtractorConfig, log zerolog.Logger) source.Source {
		return jira.NewAdapter(cfg.Connection.URL, jira.NewClient(requestTimeout, log), log)
	}

	openHistory = func(path string) (store.Store, error) {
		return store.NewSQLiteStore(path)
	}

	newPublishers = func(ctx context.Context, cfg model.UploadConfig) ([]publish.Publisher, error) {
		var pubs []publish.Publisher
		if cfg.S3Bucket != "" {
			p, err := publish.NewS3Publisher(ctx, cfg.S3Bucket)
			if err != nil {
				return nil, err
			}
			pubs = append(pubs, p)
		}
		if cfg.Mailbox.Enabled() {
			pubs = append(pubs, publish.NewMailboxPublisher(cfg.Mailbox))
		}
		return pubs, nil
	}

	keyringLookup     = credential.Lookup
	keyringSave       = credential.Set
	promptCredentials = prompt.AskCredentials
	interactiveInput  = func() bool { return progress.IsTerminal(os.Stdin) }
	now               = time.Now
)
