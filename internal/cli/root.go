package cli

import (
	"database/sql"
	"fmt"
	"os"

	"auber_controller/internal/config"
	"auber_controller/internal/repository"
	"auber_controller/internal/repository/db"

	"github.com/spf13/cobra"
)

// Exit codes
const (
	ExitOK            = 0
	ExitInternalError = 1
)

// GlobalOptions holds options shared across all commands
type GlobalOptions struct {
	ConfigDir string
	LogLevel  string
	DBPath    string
}

// NewRootCmd builds the command tree. Running it without a subcommand serves the API.
func NewRootCmd() *cobra.Command {
	opts := &GlobalOptions{}

	cmd := &cobra.Command{
		Use:   "auberctl",
		Short: "Ramp/soak program runner for the Auber SYL-53X2P",
		Long: `auberctl drives an Auber SYL-53X2P temperature controller over Modbus RTU.

Without a subcommand it starts the HTTP API and the controller loop (same as "serve").
The "programs" commands manage the stored program library directly in the database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config", "", "Directory holding config.yml (default: ./configs, then .)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Log level (debug|info|warn|error); overrides log.level")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "SQLite database file; overrides db.path")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newProgramsCmd(opts))

	return cmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitInternalError)
	}
}

// loadConfig applies the flag overrides on top of file and environment settings.
func loadConfig(opts *GlobalOptions) (*config.Config, error) {
	var paths []string
	if opts.ConfigDir != "" {
		paths = append(paths, opts.ConfigDir)
	}
	cfg, err := config.Load(config.New(paths...))
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.DBPath != "" {
		cfg.DB.Path = opts.DBPath
	}
	return cfg, nil
}

// openStore opens the database and builds the repositories on it.
func openStore(cfg *config.Config) (*sql.DB, *repository.Repository, error) {
	conn, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database %s: %w", cfg.DB.Path, err)
	}
	return conn, repository.NewRepository(conn), nil
}
