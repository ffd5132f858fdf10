package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/Veraticus/pocketwatch/internal/cli"
	"github.com/Veraticus/pocketwatch/internal/model"
	"github.com/Veraticus/pocketwatch/internal/service"
	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions with filters and sorting",
		RunE:  runList,
	}

	cmd.Flags().String("type", "", "Filter by type (income, expense)")
	cmd.Flags().String("category", "", "Filter by category")
	cmd.Flags().String("account", "", "Filter by account")
	cmd.Flags().String("from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().String("min", "", "Minimum amount")
	cmd.Flags().String("max", "", "Maximum amount")
	cmd.Flags().StringSlice("tags", nil, "Match any of these tags")
	cmd.Flags().String("merchant", "", "Filter by merchant")
	cmd.Flags().String("sort", service.SortByDate, "Sort field (date, amount, category, created_at)")
	cmd.Flags().String("order", service.OrderDesc, "Sort order (asc, desc)")
	cmd.Flags().IntP("limit", "n", 50, "Maximum rows to show")
	cmd.Flags().Int("offset", 0, "Rows to skip")

	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	txns, err := store.ListTransactions(ctx, filter)
	if err != nil {
		return err
	}
	if len(txns) == 0 {
		fmt.Println(cli.FormatInfo("No transactions match."))
		return nil
	}

	printTransactionTable(txns)
	return nil
}

func filterFromFlags(cmd *cobra.Command) (service.TransactionFilter, error) {
	var filter service.TransactionFilter

	txnType, _ := cmd.Flags().GetString("type")
	filter.Type = model.TransactionType(txnType)
	filter.Category, _ = cmd.Flags().GetString("category")
	filter.Account, _ = cmd.Flags().GetString("account")
	filter.Tags, _ = cmd.Flags().GetStringSlice("tags")
	filter.Merchant, _ = cmd.Flags().GetString("merchant")
	filter.SortBy, _ = cmd.Flags().GetString("sort")
	filter.Order, _ = cmd.Flags().GetString("order")
	filter.Limit, _ = cmd.Flags().GetInt("limit")
	filter.Offset, _ = cmd.Flags().GetInt("offset")

	from, _ := cmd.Flags().GetString("from")
	start, err := parseDatePtr(from)
	if err != nil {
		return filter, err
	}
	filter.StartDate = start

	to, _ := cmd.Flags().GetString("to")
	end, err := parseDatePtr(to)
	if err != nil {
		return filter, err
	}
	filter.EndDate = end

	if minStr, _ := cmd.Flags().GetString("min"); minStr != "" {
		minAmount, err := parseAmount(minStr)
		if err != nil {
			return filter, err
		}
		filter.MinAmount = &minAmount
	}
	if maxStr, _ := cmd.Flags().GetString("max"); maxStr != "" {
		maxAmount, err := parseAmount(maxStr)
		if err != nil {
			return filter, err
		}
		filter.MaxAmount = &maxAmount
	}

	return filter, nil
}

func printTransactionTable(txns []model.Transaction) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tAMOUNT\tCATEGORY\tDESCRIPTION\tACCOUNT")
	for i := range txns {
		txn := &txns[i]
		amount := cli.FormatAmount("$"+txn.Amount.StringFixed(2), txn.Type == model.TypeExpense)
		fmt.Fprintf(w, "%.8s\t%s\t%s\t%s\t%s\t%s\n",
			txn.ID,
			txn.Date.Format("2006-01-02"),
			amount,
			txn.Category,
			txn.Description,
			txn.Account)
	}
	_ = w.Flush()
}
