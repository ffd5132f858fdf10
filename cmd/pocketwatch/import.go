package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Veraticus/pocketwatch/internal/cli"
	"github.com/Veraticus/pocketwatch/internal/export"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Import transactions from a CSV or JSON file",
		Long: `Import data inside a single database transaction: either the whole
file lands or none of it does. The format is inferred from the file
extension unless --format is given.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("format", "", "Import format (csv, json; default from extension)")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(args[0]), ".")
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	exporter := export.NewExporter(store)
	progress, finish := importProgressBar("Importing records...")

	var count int
	switch format {
	case "csv":
		count, err = exporter.ImportCSV(ctx, args[0], progress)
	case "json":
		count, err = exporter.ImportJSON(ctx, args[0], progress)
	default:
		return fmt.Errorf("unknown import format %q (want csv or json)", format)
	}
	finish()
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d records from %s", count, args[0])))
	return nil
}
