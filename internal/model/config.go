package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Defaults applied when the configuration leaves a value unset.
const (
	DefaultBatchSize  = 10
	DefaultOutputPath = "jira_metrics.csv"
	DefaultConfigPath = "config.yaml"
)

// ConnectionConfig describes how to reach the Jira instance.
type ConnectionConfig struct {
	// URL is the root URL of the Jira instance.
	URL string `mapstructure:"url" yaml:"Url"`

	// Username and Password are used for Basic authentication.
	Username string `mapstructure:"username" yaml:"Username"`
	Password string `mapstructure:"password" yaml:"Password"`

	// Token is a Personal Access Token sent as a Bearer credential.
	// It takes precedence over Username/Password.
	Token string `mapstructure:"token" yaml:"Token"`
}

// CriteriaConfig holds the issue filter.
type CriteriaConfig struct {
	JQL string `mapstructure:"jql" yaml:"JQL"`
}

// OutputConfig controls where the CSV lands locally.
type OutputConfig struct {
	Path string `mapstructure:"path" yaml:"Path"`
}

// MailboxConfig describes an IMAP mailbox that receives the report.
type MailboxConfig struct {
	Host     string `mapstructure:"host" yaml:"Host"`
	Port     string `mapstructure:"port" yaml:"Port"`
	Username string `mapstructure:"username" yaml:"Username"`
	Password string `mapstructure:"password" yaml:"Password"`
	Folder   string `mapstructure:"folder" yaml:"Folder"`
	TLS      bool   `mapstructure:"tls" yaml:"TLS"`
}

// Enabled reports whether a mailbox upload is configured.
func (m MailboxConfig) Enabled() bool {
	return m.Host != ""
}

// UploadConfig lists the optional artifact destinations.
type UploadConfig struct {
	S3Bucket string        `mapstructure:"s3bucket" yaml:"S3Bucket"`
	Mailbox  MailboxConfig `mapstructure:"mailbox" yaml:"Mailbox"`
}

// HistoryConfig locates the run history database. An empty path
// disables history recording.
type HistoryConfig struct {
	Path string `mapstructure:"path" yaml:"Path"`
}

// MetricsConfig controls metric publication at the end of a run.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgatewayurl" yaml:"PushgatewayURL"`
}

// Attribute requests one issue field as an output column.
type Attribute struct {
	// Label is the column header.
	Label string

	// Field is the dotted path into the issue's fields
	// (e.g. "priority", "assignee.displayName", "fixVersions.0.name").
	Field string
}

// ExtractorConfig is the top-level configuration of an extraction run.
type ExtractorConfig struct {
	Connection ConnectionConfig `mapstructure:"connection"`
	Criteria   CriteriaConfig   `mapstructure:"criteria"`
	BatchSize  int              `mapstructure:"batchsize"`
	Output     OutputConfig     `mapstructure:"output"`
	Upload     UploadConfig     `mapstructure:"upload"`
	History    HistoryConfig    `mapstructure:"history"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`

	// Attributes keeps the order in which the file declares them.
	Attributes []Attribute `mapstructure:"-"`
}

// AttributeLabels returns the attribute labels in declaration order.
func (c *ExtractorConfig) AttributeLabels() []string {
	labels := make([]string, 0, len(c.Attributes))
	for _, a := range c.Attributes {
		labels = append(labels, a.Label)
	}
	return labels
}

// DefaultHistoryPath returns ~/.config/jirametrics/history.db.
func DefaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "history.db")
	}
	return filepath.Join(home, ".config", "jirametrics", "history.db")
}

func defaultExtractorConfig() *ExtractorConfig {
	return &ExtractorConfig{
		BatchSize: DefaultBatchSize,
		Output:    OutputConfig{Path: DefaultOutputPath},
		History:   HistoryConfig{Path: DefaultHistoryPath()},
	}
}

// LoadConfig reads the extractor configuration from the YAML file at path.
// Values may be overridden with JIRAMETRICS_* environment variables
// (e.g. JIRAMETRICS_CONNECTION_TOKEN). A missing file yields the defaults.
func LoadConfig(path string) (*ExtractorConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("jirametrics")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("connection.url", "")
	v.SetDefault("connection.username", "")
	v.SetDefault("connection.password", "")
	v.SetDefault("connection.token", "")
	v.SetDefault("criteria.jql", "")
	v.SetDefault("batchsize", DefaultBatchSize)
	v.SetDefault("output.path", DefaultOutputPath)
	v.SetDefault("history.path", DefaultHistoryPath())
	v.SetDefault("metrics.pushgatewayurl", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultExtractorConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultExtractorConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultExtractorConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	attrs, err := parseAttributes(data)
	if err != nil {
		return nil, fmt.Errorf("parsing attributes in %s: %w", path, err)
	}
	cfg.Attributes = attrs

	return cfg, nil
}

// parseAttributes decodes the top-level Attributes mapping in file order.
// Viper folds key case and does not keep map order, so the mapping is
// walked as a yaml.Node instead.
func parseAttributes(data []byte) ([]Attribute, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nil
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		if !strings.EqualFold(root.Content[i].Value, "attributes") {
			continue
		}
		node := root.Content[i+1]
		if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
			return nil, nil
		}
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: expected a mapping of label to field", node.Line)
		}

		attrs := make([]Attribute, 0, len(node.Content)/2)
		seen := make(map[string]bool, len(node.Content)/2)
		for j := 0; j+1 < len(node.Content); j += 2 {
			label := strings.TrimSpace(node.Content[j].Value)
			field := strings.TrimSpace(node.Content[j+1].Value)
			if label == "" || field == "" {
				return nil, fmt.Errorf("line %d: attribute label and field must be set", node.Content[j].Line)
			}
			if seen[label] {
				return nil, fmt.Errorf("line %d: duplicate attribute %q", node.Content[j].Line, label)
			}
			seen[label] = true
			attrs = append(attrs, Attribute{Label: label, Field: field})
		}
		return attrs, nil
	}

	return nil, nil
}
