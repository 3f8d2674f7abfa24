package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MapoMagpie/z7-vui/core"
	"github.com/MapoMagpie/z7-vui/internal/appconfig"
	"github.com/MapoMagpie/z7-vui/internal/history"
	"github.com/MapoMagpie/z7-vui/internal/nvimui"
	"github.com/MapoMagpie/z7-vui/internal/sevenzip"
	"github.com/MapoMagpie/z7-vui/schema"
	"pkt.systems/pslog"
)

func newViewCmd() *cobra.Command {
	var cfgPath string
	var historyFile string
	var archiverBin string
	var nvimBin string
	cmd := &cobra.Command{
		Use:           "z7vui <archive>",
		Short:         "Browse and extract an archive inside a Neovim buffer",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if historyFile != "" {
				cfg.History.File = historyFile
			}
			if archiverBin != "" {
				cfg.Archiver.Binary = archiverBin
			}
			if nvimBin != "" {
				cfg.Nvim.Binary = nvimBin
			}
			archive, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(archive); err != nil {
				return fmt.Errorf("archive: %w", err)
			}
			return runViewer(cmd.Context(), cfg, archive)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	cmd.Flags().StringVarP(&historyFile, "password-history", "p", "", "password history file")
	cmd.Flags().StringVar(&archiverBin, "archiver-bin", "", "archiver binary")
	cmd.Flags().StringVar(&nvimBin, "nvim-bin", "", "editor binary")
	return cmd
}

func runViewer(ctx context.Context, cfg appconfig.Config, archive string) error {
	logger := pslog.Ctx(ctx)
	hist, err := history.NewStore(cfg.History.File, logger)
	if err != nil {
		return err
	}

	// single-slot queues: neither side gets more than one step ahead
	push := make(chan schema.Pushment, 1)
	opers := make(chan schema.Operation, 1)

	orch, err := core.New(core.Config{Archive: archive}, core.Deps{
		Runner: sevenzip.NewRunner(sevenzip.Config{
			BinaryPath: cfg.Archiver.Binary,
			ExtraArgs:  cfg.Archiver.ExtraArgs,
		}),
		History: hist,
		Push:    push,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	ui := nvimui.New(nvimui.Config{
		Binary: cfg.Nvim.Binary,
		Socket: cfg.Nvim.Socket,
	}, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return orch.Start(ctx, opers, opers) })
	g.Go(func() error { return ui.Run(ctx, push, opers) })
	err = g.Wait()
	if errors.Is(err, schema.ErrDisplayClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newInitConfigCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:           "init-config",
		Short:         "Write a starter config file",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appconfig.WriteDefault(cfgPath); err != nil {
				return err
			}
			path := cfgPath
			if path == "" {
				path, _ = appconfig.DefaultConfigPath()
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	return cmd
}
