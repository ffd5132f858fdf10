package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/pocketwatch/internal/cli"
	"github.com/spf13/cobra"
)

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search transactions by description, category, notes, or merchant",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().IntP("limit", "n", 50, "Maximum rows to show")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	txns, err := store.SearchTransactions(ctx, query, limit)
	if err != nil {
		return err
	}
	if len(txns) == 0 {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("No transactions match %q.", query)))
		return nil
	}

	fmt.Println(cli.SubtitleStyle.Render(fmt.Sprintf("%d matches for %q", len(txns), query)))
	printTransactionTable(txns)
	return nil
}
