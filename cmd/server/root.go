package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"booktracker/internal/config"
	"booktracker/pkg/database"
)

var rootCmdPersistentFlags struct {
	LogFile    string
	ConfigFile string
	LogLevel   string
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootCmdPersistentFlags.LogFile, "log-file", "", "File to write logs to")
	rootCmd.PersistentFlags().StringVarP(&rootCmdPersistentFlags.ConfigFile, "config", "c", "", "Path to config file (default: search for config.yml in current dir, ~/.booktracker, /etc/booktracker)")
	rootCmd.PersistentFlags().StringVar(&rootCmdPersistentFlags.LogLevel, "log-level", "", "Log level (debug, info, warn, error) - overrides config file setting")
}

var rootCmd = &cobra.Command{
	Use:   "booktracker",
	Short: "booktracker is a personal reading list API",
	Long:  `booktracker keeps track of the books each user reads, behind token authenticated HTTP endpoints.`,
	Example: `booktracker --config config.yml
  booktracker serve -c /path/to/config.yml --log-level debug
  booktracker import --user alice --file books.json`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if rootCmdPersistentFlags.LogLevel != "" {
			setLogLevel(rootCmdPersistentFlags.LogLevel)
		}
		logToFile()
	},
	RunE: startServer,
}

// loadConfig loads the config and applies its log level unless --log-level
// was given.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		return nil, err
	}
	if rootCmdPersistentFlags.LogLevel == "" {
		setLogLevel(cfg.LogLevel)
	}
	log.Debug("loaded config", "config", cfg.String())
	return cfg, nil
}

// openDatabase opens and migrates the configured store, creating the parent
// directory of a file database.
func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "." && !isMemoryDSN(cfg.Database.Path) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := database.Open(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return db, nil
}

func isMemoryDSN(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file:")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.Warnf("unknown log level %s, defaulting to info", level)
		log.SetLevel(log.InfoLevel)
	}
}

func logToFile() {
	if rootCmdPersistentFlags.LogFile == "" {
		return
	}
	file, err := os.OpenFile(rootCmdPersistentFlags.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		log.Errorf("failed to open log file: %v", err)
		return
	}

	log.SetOutput(io.MultiWriter(os.Stderr, file))
	log.Info("logging to both console and file", "file", rootCmdPersistentFlags.LogFile)
}
