package main

import (
	"fmt"

	"github.com/Veraticus/pocketwatch/internal/cli"
	"github.com/Veraticus/pocketwatch/internal/model"
	"github.com/spf13/cobra"
)

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <amount> <category>",
		Short: "Record an income or expense transaction",
		Long: `Add a transaction to the ledger.

Amounts are always stored as positive values; the --income flag controls
whether the transaction counts for or against your balance. Categories are
normalized to title case so "food" and "Food" land in the same bucket.`,
		Args: cobra.ExactArgs(2),
		RunE: runAdd,
	}

	cmd.Flags().Bool("income", false, "Record income instead of an expense")
	cmd.Flags().StringP("description", "d", "", "What the transaction was for")
	cmd.Flags().String("date", "", "Transaction date (YYYY-MM-DD, default today)")
	cmd.Flags().String("account", "", "Account name (default \"default\")")
	cmd.Flags().StringSlice("tags", nil, "Tags for filtering, comma separated")
	cmd.Flags().String("merchant", "", "Merchant name")
	cmd.Flags().String("payment-method", "", "Payment method")
	cmd.Flags().String("subcategory", "", "Subcategory")
	cmd.Flags().String("notes", "", "Free-form notes")
	cmd.Flags().String("receipt", "", "Path to a receipt image or document")
	cmd.Flags().Bool("non-essential", false, "Mark the expense as non-essential")

	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	amount, err := parseAmount(args[0])
	if err != nil {
		return err
	}

	income, _ := cmd.Flags().GetBool("income")
	description, _ := cmd.Flags().GetString("description")
	dateStr, _ := cmd.Flags().GetString("date")
	account, _ := cmd.Flags().GetString("account")
	tags, _ := cmd.Flags().GetStringSlice("tags")
	merchant, _ := cmd.Flags().GetString("merchant")
	paymentMethod, _ := cmd.Flags().GetString("payment-method")
	subcategory, _ := cmd.Flags().GetString("subcategory")
	notes, _ := cmd.Flags().GetString("notes")
	receipt, _ := cmd.Flags().GetString("receipt")
	nonEssential, _ := cmd.Flags().GetBool("non-essential")

	date, err := parseDate(dateStr)
	if err != nil {
		return err
	}

	txnType := model.TypeExpense
	if income {
		txnType = model.TypeIncome
	}

	essential := !nonEssential
	txn, err := model.NewTransaction(model.TransactionConfig{
		Amount:        amount,
		Category:      args[1],
		Description:   description,
		Type:          txnType,
		Date:          date,
		Account:       account,
		Tags:          tags,
		Merchant:      merchant,
		PaymentMethod: paymentMethod,
		Subcategory:   subcategory,
		Notes:         notes,
		ReceiptPath:   receipt,
		IsEssential:   &essential,
	})
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveTransaction(ctx, txn); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recorded %s: %s", txnType, txn)))
	fmt.Println(cli.SubtleStyle.Render("ID: " + txn.ID))
	return nil
}
