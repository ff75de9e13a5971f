package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pbaille/frames/internal/config"
	"github.com/pbaille/frames/internal/logging"
	"github.com/pbaille/frames/internal/store"
	"github.com/pbaille/frames/internal/tracker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	cobra.OnInitialize(initConfig)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "frames",
		Short:        "Track time spent on projects and report on it",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/frames/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "database path (overrides the database setting)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("database", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(stopCmd())
	rootCmd.AddCommand(restartCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(tagCmd())
	rootCmd.AddCommand(noteCmd())
	rootCmd.AddCommand(estimateCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(projectsCmd())
	rootCmd.AddCommand(tagsCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(serveCmd())

	return rootCmd
}

func initConfig() {
	// Defaults first so they apply without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
	}

	// FRAMES_LOGGING_LEVEL for logging.level
	viper.AutomaticEnv()
	viper.SetEnvPrefix("FRAMES")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is fine
	_ = viper.ReadInConfig()
}

// app bundles what most commands need
type app struct {
	cfg     *config.Config
	store   *store.Store
	tracker *tracker.Tracker
	logger  *logging.Logger
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0755); err != nil {
		logger.Close()
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	s, err := store.New(cfg.Database)
	if err != nil {
		logger.Close()
		return nil, err
	}
	logger.Debug("database opened", "path", cfg.Database)

	return &app{
		cfg:     cfg,
		store:   s,
		tracker: tracker.New(s, tracker.WithLogger(logger.With("component", "tracker"))),
		logger:  logger,
	}, nil
}

func (a *app) Close() error {
	if err := a.store.Close(); err != nil {
		a.logger.Close()
		return err
	}
	return a.logger.Close()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func tagSuffix(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return " [" + strings.Join(names, ", ") + "]"
}
