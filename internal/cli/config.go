package cli

import (
	"fmt"
	"strings"

	"github.com/nhle/jira-metrics/internal/credential"
	"github.com/nhle/jira-metrics/internal/extract"
	"github.com/nhle/jira-metrics/internal/model"
	"github.com/nhle/jira-metrics/internal/source"
	"github.com/nhle/jira-metrics/internal/ui/prompt"
)

// loadRunConfig reads the config file and applies command-line overrides.
func loadRunConfig() (*model.ExtractorConfig, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if usernameFlag != "" {
		cfg.Connection.Username = usernameFlag
	}
	if passwordFlag != "" {
		cfg.Connection.Password = passwordFlag
		cfg.Connection.Token = ""
	}
	if jqlFlag != "" {
		cfg.Criteria.JQL = jqlFlag
	}
	if batchSize > 0 {
		cfg.BatchSize = batchSize
	}
	cfg.Connection.URL = strings.TrimSpace(cfg.Connection.URL)

	return cfg, nil
}

// resolveCredentials fills in the secret from the keyring or an
// interactive prompt when neither flags nor config supply one.
func resolveCredentials(cfg *model.ExtractorConfig) (source.Credentials, error) {
	creds := source.Credentials{
		Username: cfg.Connection.Username,
		Password: cfg.Connection.Password,
		Token:    cfg.Connection.Token,
	}
	if !creds.Empty() {
		return creds, nil
	}

	if creds.Username != "" {
		secret, err := keyringLookup(credential.Key(cfg.Connection.URL, creds.Username))
		if err != nil {
			log.Debug().Err(err).Msg("keyring unavailable")
		} else if secret != "" {
			log.Debug().Str("username", creds.Username).Msg("using password from keyring")
			creds.Password = secret
			return creds, nil
		}
	}

	if !interactiveInput() {
		return creds, &extract.ConfigurationError{
			Reason: fmt.Sprintf("no password or token configured for %s", cfg.Connection.URL),
		}
	}

	in, err := promptCredentials(prompt.CredentialsInput{
		Endpoint: cfg.Connection.URL,
		Username: creds.Username,
	}, !rememberFlag)
	if err != nil {
		return creds, err
	}
	creds.Username = in.Username
	creds.Password = in.Secret

	if rememberFlag || in.Remember {
		key := credential.Key(cfg.Connection.URL, creds.Username)
		if err := keyringSave(key, creds.Password); err != nil {
			log.Warn().Err(err).Msg("could not save password to keyring")
		}
	}

	return creds, nil
}
