package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pbaille/frames/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change settings",
	}

	cmd.AddCommand(settingsShowCmd())
	cmd.AddCommand(settingsEditCmd())
	return cmd
}

func settingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if used := viper.ConfigFileUsed(); used != "" {
				fmt.Fprintf(out, "# %s\n", used)
			}
			for _, key := range config.Keys() {
				fmt.Fprintf(out, "%s: %q\n", key, viper.GetString(key))
			}
			return nil
		},
	}
}

func settingsEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit [key] [value]",
		Short: "Change a setting",
		Long:  "Change a setting. Valid keys: " + strings.Join(config.Keys(), ", "),
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], strings.Join(args[1:], " ")
			if !slices.Contains(config.Keys(), key) {
				return fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(config.Keys(), ", "))
			}

			viper.Set(key, value)
			if _, err := config.Load(); err != nil {
				return err
			}

			path := viper.ConfigFileUsed()
			if path == "" {
				path = config.ConfigFile()
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("create config dir: %w", err)
			}
			if err := viper.WriteConfigAs(path); err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s to %s\n", key, value)
			return nil
		},
	}
}
