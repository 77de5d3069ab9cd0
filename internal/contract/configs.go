package contract

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/huangsam/svncoord/schema"
)

// Default values for configuration.
const (
	DefaultJournalLimit = 25
	MaxJournalLimit     = 1000
	DefaultLogLevel     = "warn"
	DefaultLogFormat    = "console"
	DefaultStateFile    = "svncoord-state.yaml"
)

// DateTimeFormat is the default date time representation.
const DateTimeFormat = "2006-01-02T15:04:05Z07:00"

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration for all commands.
// This struct remains the "final, validated" config.
type Config struct {
	StatePath string

	Depth       schema.Depth
	Force       bool
	KeepLocks   bool
	Changelists []string
	RevProps    map[string]string
	Message     string
	Author      string
	UseAncestry bool // set by --ignore-ancestry: unrelated nodes diff as modifications
	DryRun      bool
	RecordOnly  bool

	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	Limit      int
	UseColors  bool

	LogLevel  string
	LogFormat string

	JournalBackend   schema.DatabaseBackend
	JournalDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	State            string `mapstructure:"state"`
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	Width            int    `mapstructure:"width"`
	Color            string `mapstructure:"color"`
	LogLevel         string `mapstructure:"log-level"`
	LogFormat        string `mapstructure:"log-format"`
	JournalBackend   string `mapstructure:"journal-backend"`
	JournalDBConnect string `mapstructure:"journal-db-connect"`

	// --- Fields from commitCmd.Flags() and deleteCmd.Flags() ---
	Depth       string `mapstructure:"depth"`
	Force       bool   `mapstructure:"force"`
	KeepLocks   bool   `mapstructure:"keep-locks"`
	Changelists string `mapstructure:"changelist"`
	RevProps    string `mapstructure:"with-revprop"`
	Message     string `mapstructure:"message"`
	Author      string `mapstructure:"author"`

	// --- Fields from diffCmd.Flags() and mergeCmd.Flags() ---
	UseAncestry bool `mapstructure:"ignore-ancestry"`
	DryRun      bool `mapstructure:"dry-run"`
	RecordOnly  bool `mapstructure:"record-only"`

	// --- Fields from journalListCmd.Flags() ---
	Limit int `mapstructure:"limit"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Changelists = slices.Clone(c.Changelists)
	if c.RevProps != nil {
		clone.RevProps = make(map[string]string, len(c.RevProps))
		maps.Copy(clone.RevProps, c.RevProps)
	}
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processCommitInputs(cfg, input); err != nil {
		return err
	}
	return validateBackendConfig(cfg, input)
}

// validateSimpleInputs processes and validates output and logging fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.StatePath = input.State
	if cfg.StatePath == "" {
		cfg.StatePath = DefaultStateFile
	}
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.UseAncestry = input.UseAncestry
	cfg.DryRun = input.DryRun
	cfg.RecordOnly = input.RecordOnly

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}

	if input.Limit < 0 || input.Limit > MaxJournalLimit {
		return fmt.Errorf("limit cannot be negative or exceed %d (received %d)", MaxJournalLimit, input.Limit)
	}
	cfg.Limit = input.Limit
	if cfg.Limit == 0 {
		cfg.Limit = DefaultJournalLimit
	}

	cfg.LogLevel = strings.ToLower(input.LogLevel)
	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = DefaultLogLevel
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level '%s'. must be debug, info, warn, error", input.LogLevel)
	}

	cfg.LogFormat = strings.ToLower(input.LogFormat)
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = DefaultLogFormat
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format '%s'. must be console or json", input.LogFormat)
	}
	return nil
}

// processCommitInputs handles depth, changelists and revision properties.
func processCommitInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Force = input.Force
	cfg.KeepLocks = input.KeepLocks
	cfg.Message = input.Message
	cfg.Author = input.Author

	cfg.Depth = schema.Depth(strings.ToLower(input.Depth))
	if cfg.Depth == "" {
		cfg.Depth = schema.DepthInfinity
	}
	if _, ok := schema.ValidDepths[cfg.Depth]; !ok {
		return fmt.Errorf("invalid depth '%s'. must be empty, files, immediates, infinity", input.Depth)
	}

	cfg.Changelists = nil
	for p := range strings.SplitSeq(input.Changelists, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			cfg.Changelists = append(cfg.Changelists, trimmed)
		}
	}

	revProps, err := ParseRevProps(input.RevProps)
	if err != nil {
		return err
	}
	cfg.RevProps = revProps
	return nil
}

// ParseRevProps parses "name=value,name2=value2" into a property map.
func ParseRevProps(s string) (map[string]string, error) {
	props := map[string]string{}
	for pair := range strings.SplitSeq(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid revision property '%s'. Use the form name=value", pair)
		}
		props[name] = strings.TrimSpace(value)
	}
	if len(props) == 0 {
		return nil, nil
	}
	return props, nil
}

// validateBackendConfig validates the journal backend configuration.
func validateBackendConfig(cfg *Config, input *ConfigRawInput) error {
	cfg.JournalBackend = schema.DatabaseBackend(strings.ToLower(input.JournalBackend))
	if cfg.JournalBackend == "" {
		cfg.JournalBackend = schema.NoneBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.JournalBackend]; !ok {
		return fmt.Errorf("invalid journal backend '%s'. must be sqlite, mysql, postgresql, none", input.JournalBackend)
	}
	cfg.JournalDBConnect = input.JournalDBConnect
	return ValidateDatabaseConnectionString(cfg.JournalBackend, cfg.JournalDBConnect)
}

// ProcessProfilingConfig enables profiling when a file prefix is given.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("journal-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("journal-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// GetJournalDBFilePath returns the path to the SQLite DB file for the commit journal.
func GetJournalDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".svncoord_journal.db"
	}
	return filepath.Join(homeDir, ".svncoord_journal.db")
}
