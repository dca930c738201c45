package main

import (
	"bytes"
	"fmt"

	"github.com/brettbedarf/treefs/adapters"
	"github.com/brettbedarf/treefs/filesystem"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/brettbedarf/treefs/persist"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <dump>",
		Short: "Validate a dump (a path or an http(s) URL) and print what it holds",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	util.InitializeLogger(cfg.LogLvl)

	data, err := adapters.NewDefaultRegistry(cfg).Read(args[0])
	if err != nil {
		return err
	}

	policy, err := persist.ParseMergePolicy(cfg.MergePolicy)
	if err != nil {
		return err
	}
	tree := filesystem.NewFS(cfg)
	stats, err := persist.Deserialize(tree, bytes.NewReader(data), policy)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d directories, %d files, %d lines\n", args[0], stats.Dirs, stats.Files, stats.Lines)
	return nil
}
