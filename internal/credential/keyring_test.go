package credential

import "testing"

func TestKey(t *testing.T) {
	tests := []struct {
		endpoint, user, want string
	}{
		{"https://Example.atlassian.net", "ann", "jira-example.atlassian.net-ann"},
		{"https://jira.local:8443/base", "bob", "jira-jira.local:8443-bob"},
		{"jira.local", "bob", "jira-jira.local-bob"},
	}
	for _, tt := range tests {
		if got := Key(tt.endpoint, tt.user); got != tt.want {
			t.Errorf("Key(%q, %q) = %q, want %q", tt.endpoint, tt.user, got, tt.want)
		}
	}
}
