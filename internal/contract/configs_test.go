package contract

import (
	"testing"

	"github.com/huangsam/svncoord/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Output: "text",
		Color:  "yes",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
		check       func(*testing.T, *Config)
	}{
		{
			name: "valid minimal config gets defaults",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultStateFile, cfg.StatePath)
				assert.Equal(t, schema.DepthInfinity, cfg.Depth)
				assert.Equal(t, DefaultJournalLimit, cfg.Limit)
				assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
				assert.Equal(t, DefaultLogFormat, cfg.LogFormat)
				assert.Equal(t, schema.NoneBackend, cfg.JournalBackend)
				assert.True(t, cfg.UseColors)
				assert.Nil(t, cfg.RevProps)
			},
		},
		{
			name: "commit inputs are parsed",
			mutate: func(in *ConfigRawInput) {
				in.Depth = "Immediates"
				in.Changelists = " cl1, ,cl2 "
				in.RevProps = "release=1.0, owner = bob"
				in.Message = "msg"
				in.KeepLocks = true
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.DepthImmediates, cfg.Depth)
				assert.Equal(t, []string{"cl1", "cl2"}, cfg.Changelists)
				assert.Equal(t, map[string]string{"release": "1.0", "owner": "bob"}, cfg.RevProps)
				assert.Equal(t, "msg", cfg.Message)
				assert.True(t, cfg.KeepLocks)
			},
		},
		{
			name: "output mode is case insensitive",
			mutate: func(in *ConfigRawInput) {
				in.Output = "CSV"
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.CSVOut, cfg.Output)
			},
		},
		{
			name:        "invalid output",
			mutate:      func(in *ConfigRawInput) { in.Output = "xml" },
			expectError: true,
		},
		{
			name:        "invalid color",
			mutate:      func(in *ConfigRawInput) { in.Color = "sometimes" },
			expectError: true,
		},
		{
			name:        "limit too large",
			mutate:      func(in *ConfigRawInput) { in.Limit = MaxJournalLimit + 1 },
			expectError: true,
		},
		{
			name:        "invalid depth",
			mutate:      func(in *ConfigRawInput) { in.Depth = "exclude" },
			expectError: true,
		},
		{
			name:        "invalid revprop",
			mutate:      func(in *ConfigRawInput) { in.RevProps = "novalue" },
			expectError: true,
		},
		{
			name:        "invalid log level",
			mutate:      func(in *ConfigRawInput) { in.LogLevel = "trace" },
			expectError: true,
		},
		{
			name:        "invalid log format",
			mutate:      func(in *ConfigRawInput) { in.LogFormat = "xml" },
			expectError: true,
		},
		{
			name:        "invalid backend",
			mutate:      func(in *ConfigRawInput) { in.JournalBackend = "redis" },
			expectError: true,
		},
		{
			name:        "mysql requires connection string",
			mutate:      func(in *ConfigRawInput) { in.JournalBackend = "mysql" },
			expectError: true,
		},
		{
			name: "sqlite with custom path",
			mutate: func(in *ConfigRawInput) {
				in.JournalBackend = "SQLite"
				in.JournalDBConnect = "/tmp/journal.db"
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.SQLiteBackend, cfg.JournalBackend)
				assert.Equal(t, "/tmp/journal.db", cfg.JournalDBConnect)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			if tt.mutate != nil {
				tt.mutate(input)
			}
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{Changelists: []string{"a"}, RevProps: map[string]string{"k": "v"}}
	clone := cfg.Clone()
	clone.Changelists[0] = "b"
	clone.RevProps["k"] = "w"
	assert.Equal(t, "a", cfg.Changelists[0])
	assert.Equal(t, "v", cfg.RevProps["k"])
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		backend schema.DatabaseBackend
		connStr string
		wantErr bool
	}{
		{"none", schema.NoneBackend, "", false},
		{"sqlite empty", schema.SQLiteBackend, "", false},
		{"mysql valid", schema.MySQLBackend, "user:pass@tcp(localhost:3306)/svncoord", false},
		{"mysql missing tcp", schema.MySQLBackend, "user:pass@localhost/svncoord", true},
		{"mysql missing db", schema.MySQLBackend, "user@tcp(localhost:3306)", true},
		{"postgres valid", schema.PostgreSQLBackend, "host=localhost port=5432 dbname=svncoord", false},
		{"postgres missing host", schema.PostgreSQLBackend, "dbname=svncoord", true},
		{"postgres missing dbname", schema.PostgreSQLBackend, "host=localhost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.connStr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessProfilingConfig(t *testing.T) {
	var profile ProfileConfig
	ProcessProfilingConfig(&profile, "")
	assert.False(t, profile.Enabled)

	ProcessProfilingConfig(&profile, "run")
	assert.True(t, profile.Enabled)
	assert.Equal(t, "run", profile.Prefix)
}
