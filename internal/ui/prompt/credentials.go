// Package prompt asks the user for values missing from flags, config,
// and the keyring.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("prompt aborted")

// CredentialsInput holds the values the form edits. Fields that are
// already set are not asked for again.
type CredentialsInput struct {
	Endpoint string
	Username string
	Secret   string
	Remember bool
}

// AskCredentials prompts for the Jira username and password or API token.
// offerRemember adds a confirmation for storing the secret in the keyring.
func AskCredentials(in CredentialsInput, offerRemember bool) (CredentialsInput, error) {
	form := buildCredentialsForm(&in, offerRemember)
	if form == nil {
		return in, nil
	}

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return in, ErrAborted
		}
		return in, fmt.Errorf("reading credentials: %w", err)
	}

	in.Username = strings.TrimSpace(in.Username)
	return in, nil
}

func buildCredentialsForm(in *CredentialsInput, offerRemember bool) *huh.Form {
	var fields []huh.Field

	if in.Username == "" {
		fields = append(fields, huh.NewInput().
			Title("Username").
			Description("Jira account email or user name").
			Value(&in.Username).
			Validate(validateRequired("Username")))
	}

	if in.Secret == "" {
		fields = append(fields, huh.NewInput().
			Title("Password or API token").
			Description("Credentials for "+in.Endpoint).
			EchoMode(huh.EchoModePassword).
			Value(&in.Secret).
			Validate(validateRequired("Password")))

		if offerRemember {
			fields = append(fields, huh.NewConfirm().
				Title("Save to system keyring?").
				Affirmative("Yes").
				Negative("No").
				Value(&in.Remember))
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return huh.NewForm(huh.NewGroup(fields...))
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
