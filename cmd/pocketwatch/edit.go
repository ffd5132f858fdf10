package main

import (
	"fmt"

	"github.com/Veraticus/pocketwatch/internal/cli"
	"github.com/Veraticus/pocketwatch/internal/model"
	"github.com/spf13/cobra"
)

func editCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit fields of an existing transaction",
		Long: `Edit a transaction by full ID or unambiguous prefix. Only the
flags you pass are changed; everything else is left as is.`,
		Args: cobra.ExactArgs(1),
		RunE: runEdit,
	}

	cmd.Flags().String("amount", "", "New amount")
	cmd.Flags().String("category", "", "New category")
	cmd.Flags().StringP("description", "d", "", "New description")
	cmd.Flags().String("type", "", "New type (income, expense)")
	cmd.Flags().String("date", "", "New date (YYYY-MM-DD)")
	cmd.Flags().String("account", "", "New account")
	cmd.Flags().StringSlice("tags", nil, "Replace tags")
	cmd.Flags().String("merchant", "", "New merchant")
	cmd.Flags().String("notes", "", "New notes")

	return cmd
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var update model.TransactionUpdate
	if cmd.Flags().Changed("amount") {
		s, _ := cmd.Flags().GetString("amount")
		amount, err := parseAmount(s)
		if err != nil {
			return err
		}
		update.Amount = &amount
	}
	if cmd.Flags().Changed("category") {
		s, _ := cmd.Flags().GetString("category")
		update.Category = &s
	}
	if cmd.Flags().Changed("description") {
		s, _ := cmd.Flags().GetString("description")
		update.Description = &s
	}
	if cmd.Flags().Changed("type") {
		s, _ := cmd.Flags().GetString("type")
		txnType := model.TransactionType(s)
		update.Type = &txnType
	}
	if cmd.Flags().Changed("date") {
		s, _ := cmd.Flags().GetString("date")
		date, err := parseDate(s)
		if err != nil {
			return err
		}
		update.Date = &date
	}
	if cmd.Flags().Changed("account") {
		s, _ := cmd.Flags().GetString("account")
		update.Account = &s
	}
	if cmd.Flags().Changed("tags") {
		tags, _ := cmd.Flags().GetStringSlice("tags")
		update.Tags = &tags
	}
	if cmd.Flags().Changed("merchant") {
		s, _ := cmd.Flags().GetString("merchant")
		update.Merchant = &s
	}
	if cmd.Flags().Changed("notes") {
		s, _ := cmd.Flags().GetString("notes")
		update.Notes = &s
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	updated, err := store.UpdateTransaction(ctx, args[0], update)
	if err != nil {
		return err
	}
	if !updated {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("No transaction found for %q.", args[0])))
		return nil
	}

	txn, err := store.GetTransaction(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println(cli.FormatSuccess("Updated: " + txn.String()))
	return nil
}
