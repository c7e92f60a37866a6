package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/ledbench/internal/config"
	"github.com/muurk/ledbench/internal/ui"
)

var forceInit bool

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the settings file",
	Long: `Create or display the ledbench settings file.

The settings file is YAML and only read by ledbench; every key has a default,
so a partial file overrides just what it names.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default settings file",
	Example: `  # Write defaults to the per-user config path
  ledbench config init

  # Replace an existing file without asking
  ledbench config init --force`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipSettings: "true"},
	RunE:        runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file without asking")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := settingsPath()
	if err != nil {
		return err
	}

	force := forceInit
	if _, err := os.Stat(path); err == nil && !force {
		ok := ui.Confirm(os.Stdin, os.Stdout, "Settings File Exists",
			[]string{
				path,
				"Every setting in it will be replaced by the defaults.",
			},
			"Overwrite it?")
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
		force = true
	}

	written, err := config.WriteDefault(path, force)
	if err != nil {
		return err
	}

	ui.NewPrinter(os.Stdout).PrintSuccess("Settings Written", ui.Param{Key: "File", Value: written})
	return nil
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings",
	Long: `Print the settings in effect: the settings file merged over the defaults,
with --port applied.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	path, err := settingsPath()
	if err != nil {
		return err
	}

	source := path
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		source = path + " (not found, using defaults)"
	}

	data, err := settings.Marshal()
	if err != nil {
		return err
	}

	p := ui.NewPrinter(os.Stdout)
	p.PrintHeader("Settings", commandLine(cmd, args), ui.Param{Key: "File", Value: source})
	fmt.Print(string(data))
	return nil
}

func settingsPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}
