package main

import (
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/brettbedarf/treefs/adapters"
	"github.com/brettbedarf/treefs/internal/util"
	"github.com/brettbedarf/treefs/server"
	"github.com/brettbedarf/treefs/session"
	"github.com/spf13/cobra"
)

func newMountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mount <mountpoint>",
		Short: "Serve the stored tree as a read-only FUSE filesystem",
		Args:  cobra.ExactArgs(1),
		RunE:  runMount,
	}
	cmd.Flags().BoolP("umount", "u", false,
		"Unmount the mountpoint first if needed. Useful for debuggers that don't exit properly.")
	return cmd
}

func runMount(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	util.InitializeLogger(cfg.LogLvl)
	logger := util.GetLogger("main")

	mnt := args[0]
	if umount, _ := cmd.Flags().GetBool("umount"); umount {
		// we ignore error here if not already mounted
		exec.Command("fusermount", "-u", mnt).Run() // nolint:errcheck
	}

	sess, err := session.New(cfg, adapters.NewDefaultRegistry(cfg))
	if err != nil {
		return err
	}
	restored, err := sess.Restore()
	if err != nil {
		return err
	}
	if !restored {
		logger.Warn().Str("store", cfg.StorePath).Msg("No dump found; serving an empty tree")
	}

	srv := server.New(sess.FS())
	if err := srv.Serve(mnt); err != nil {
		logger.Error().Err(err).Msg("Failed to mount filesystem")
		return err
	}

	// Setup signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	logger.Info().Str("mountpoint", mnt).Int("nodes", sess.FS().NodeCount()).Msg("Filesystem mounted successfully")

	sig := <-signalChan
	logger.Info().Str("signal", sig.String()).Msg("Received signal, unmounting filesystem")

	if err := srv.Unmount(); err != nil {
		logger.Error().Err(err).Msg("Failed to unmount filesystem")
		return err
	}
	logger.Info().Msg("Filesystem unmounted successfully")
	return nil
}
