package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/svncoord/core"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/internal/eventlog"
	"github.com/huangsam/svncoord/internal/iocache"
	"github.com/huangsam/svncoord/internal/outwriter"
	"github.com/huangsam/svncoord/internal/sandbox"
	"github.com/huangsam/svncoord/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// profile holds profiling configuration.
var profile = &contract.ProfileConfig{}

// journalManager is the global persistence manager instance.
var journalManager contract.StoreManager = iocache.Manager

// logger receives structured progress events.
var logger = zap.NewNop()

// state is the in-memory repository and working-copy world the commands operate on.
var state *sandbox.Sandbox

// startProfiling starts CPU and memory profiling if enabled.
func startProfiling() error {
	if !profile.Enabled {
		return nil
	}

	cpuFile, err := os.Create(profile.Prefix + ".cpu.prof")
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		return fmt.Errorf("could not start CPU profiling: %w", err)
	}

	_, err = fmt.Fprintf(os.Stderr, "Profiling enabled. CPU profile: %s.cpu.prof, Memory profile: %s.mem.prof\n", profile.Prefix, profile.Prefix)
	return err
}

// stopProfiling stops profiling and writes memory profile.
func stopProfiling() error {
	if !profile.Enabled {
		return nil
	}

	pprof.StopCPUProfile()

	memFile, err := os.Create(profile.Prefix + ".mem.prof")
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer func() { _ = memFile.Close() }()

	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}

	_, err = fmt.Fprintf(os.Stderr, "Profiling complete. Use 'go tool pprof %s.cpu.prof' to analyze.\n", profile.Prefix)
	return err
}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "svncoord",
	Short: "Coordinate commits and resolve merge ranges across versioned trees.",
	Long: `svncoord harvests working-copy changes into atomic commits, compares trees
and merges revision ranges while keeping svn:mergeinfo accurate.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// useConfigFile points viper at --config or the default .svncoord.yaml locations.
func useConfigFile() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".svncoord")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	useConfigFile()

	viper.SetEnvPrefix("SVNCOORD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("state", contract.DefaultStateFile)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("limit", contract.DefaultJournalLimit)
	viper.SetDefault("depth", schema.DepthInfinity)
	viper.SetDefault("log-level", contract.DefaultLogLevel)
	viper.SetDefault("log-format", contract.DefaultLogFormat)
	viper.SetDefault("journal-backend", schema.NoneBackend)
	viper.SetDefault("journal-db-connect", "")
	viper.SetDefault("color", "yes")
}

// loadConfigFile reads the config file if one is present.
func loadConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// sharedSetup unmarshals config, runs validation and opens the journal, the
// logger and the sandbox state.
func sharedSetup(_ context.Context, _ *cobra.Command, _ []string) error {
	contract.ProcessProfilingConfig(profile, viper.GetString("profile"))
	if profile.Enabled {
		if err := startProfiling(); err != nil {
			return fmt.Errorf("failed to start profiling: %w", err)
		}
	}

	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}
	color.NoColor = !cfg.UseColors

	l, err := eventlog.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	logger = l

	// 4. Initialize persistence layer with validated config
	if err := iocache.InitJournal(cfg.JournalBackend, cfg.JournalDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}

	sb, err := sandbox.LoadFile(cfg.StatePath, nil)
	if err != nil {
		return err
	}
	state = sb
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// operationContext suppresses operation headers for machine-readable output.
func operationContext() context.Context {
	if cfg.Output != schema.TextOut {
		return core.WithSuppressHeader(rootCtx)
	}
	return rootCtx
}

// workspace wires the loaded state, the event log and the journal together.
func workspace() *core.Workspace {
	return &core.Workspace{
		Connector: state.Connector(),
		Store:     state.Store(),
		Events:    eventlog.New(logger),
		Journal:   journalManager.GetJournalStore(),
		Writer:    outwriter.NewOutWriter(),
	}
}

// saveState persists the sandbox after a command changed it.
func saveState() {
	if err := state.SaveFile(cfg.StatePath); err != nil {
		contract.LogFatal("Failed to save state", err)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetJournalManager sets the global journal manager.
func SetJournalManager(mgr contract.StoreManager) {
	journalManager = mgr
}

// Shutdown flushes the logger and stops profiling if enabled.
func Shutdown() error {
	_ = logger.Sync()
	return stopProfiling()
}
