package main

import (
	"fmt"
	"os"

	"github.com/brettbedarf/treefs/adapters"
	"github.com/brettbedarf/treefs/config"
	"github.com/brettbedarf/treefs/internal/shell"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/brettbedarf/treefs/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "treefs",
		Short: "In-memory hierarchical namespace with a line editor",
		Long: `treefs keeps a tree of directories and line-oriented files in memory and
runs an interactive shell over it (ls cd mkdir touch mv rename edit load open exit).

The tree is restored from the store file at startup when it exists and saved
back after every change.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runShell,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Path to a YAML or JSON config file")
	flags.IntP("verbose", "v", config.InfoVerbose, "Log verbosity level between 1 (error) and 5 (trace)")
	flags.String("store", "", "Dump file the tree is persisted to (default "+config.DefaultStorePath+")")

	cmd.AddCommand(newMountCmd(), newCheckCmd())
	return cmd
}

// loadConfig layers the config file, then explicitly set flags, over the defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewDefaultConfig()

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path != "" {
		override, err := config.LoadConfigOverrideFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg.Merge(override)
	}

	var flagOverride config.ConfigOverride
	if cmd.Flags().Changed("verbose") {
		verbose, err := cmd.Flags().GetInt("verbose")
		if err != nil {
			return nil, err
		}
		flagOverride.LogLvl = &verbose
	}
	if cmd.Flags().Changed("store") {
		store, err := cmd.Flags().GetString("store")
		if err != nil {
			return nil, err
		}
		flagOverride.StorePath = &store
	}
	cfg.Merge(&flagOverride)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runShell(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	util.InitializeLogger(cfg.LogLvl)
	logger := util.GetLogger("main")

	sess, err := session.New(cfg, adapters.NewDefaultRegistry(cfg))
	if err != nil {
		return err
	}
	if _, err := sess.Restore(); err != nil {
		// Records before the bad one are kept; the shell still starts
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	logger.Info().Str("store", cfg.StorePath).Bool("interactive", interactive).Msg("Shell starting")
	return shell.New(sess, cmd.InOrStdin(), cmd.OutOrStdout(), interactive).Run()
}
