package main

import (
	"fmt"
	"os"

	"github.com/Veraticus/pocketwatch/internal/cli"
	"github.com/Veraticus/pocketwatch/internal/export"
	"github.com/Veraticus/pocketwatch/internal/service"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <path>",
		Short: "Export data to a CSV or JSON file",
		Long: `Export ledger data. The format is chosen with --format: csv writes
transactions only, json writes a full snapshot including budgets and goals.`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}

	cmd.Flags().String("format", "csv", "Export format (csv, json)")
	cmd.Flags().String("from", "", "Start date for csv export (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "End date for csv export (YYYY-MM-DD)")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, _ := cmd.Flags().GetString("format")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	exporter := export.NewExporter(store)

	switch format {
	case "csv":
		from, _ := cmd.Flags().GetString("from")
		start, err := parseDatePtr(from)
		if err != nil {
			return err
		}
		to, _ := cmd.Flags().GetString("to")
		end, err := parseDatePtr(to)
		if err != nil {
			return err
		}

		count, err := exporter.ExportCSV(ctx, args[0], service.TransactionFilter{
			StartDate: start,
			EndDate:   end,
		}, nil)
		if err != nil {
			return err
		}
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d transactions to %s", count, args[0])))
	case "json":
		count, err := exporter.ExportJSON(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d records to %s", count, args[0])))
	default:
		return fmt.Errorf("unknown export format %q (want csv or json)", format)
	}
	return nil
}

// importProgressBar builds the progress callback used by bulk imports.
func importProgressBar(description string) (export.ProgressFunc, func()) {
	var bar *progressbar.ProgressBar
	progress := func(current, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription(description),
			)
		}
		_ = bar.Set(current)
	}
	finish := func() {
		if bar != nil {
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
		}
	}
	return progress, finish
}
