package main

import (
	"fmt"

	"github.com/Veraticus/pocketwatch/internal/cli"
	"github.com/Veraticus/pocketwatch/internal/config"
	"github.com/Veraticus/pocketwatch/internal/export"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a timestamped JSON snapshot of all data",
		RunE:  runBackup,
	}

	cmd.Flags().String("dir", "", "Backup directory (default $HOME/.local/share/pocketwatch/backups)")

	return cmd
}

func runBackup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = viper.GetString("backup.dir")
	}
	if dir == "" {
		dir = "$HOME/.local/share/pocketwatch/backups"
	}
	dir = config.ExpandPath(dir)

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	exporter := export.NewExporter(store)
	path, err := exporter.Backup(ctx, dir)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess("Backup written to " + path))
	return nil
}
