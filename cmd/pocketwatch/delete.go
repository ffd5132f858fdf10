package main

import (
	"fmt"

	"github.com/Veraticus/pocketwatch/internal/cli"
	"github.com/spf13/cobra"
)

func deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}

	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	yes, _ := cmd.Flags().GetBool("yes")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	// Resolve prefixes before deleting so the prompt shows the real record.
	txn, err := store.GetTransaction(ctx, args[0])
	if err != nil {
		return err
	}

	if !yes {
		fmt.Println(cli.FormatWarning("About to delete: " + txn.String()))
		fmt.Print("Type 'yes' to confirm: ")
		var answer string
		if _, err := fmt.Scanln(&answer); err != nil || answer != "yes" {
			fmt.Println(cli.FormatInfo("Aborted."))
			return nil
		}
	}

	deleted, err := store.DeleteTransaction(ctx, txn.ID)
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Println(cli.FormatWarning("Transaction was already gone."))
		return nil
	}

	fmt.Println(cli.FormatSuccess("Deleted " + txn.ID))
	return nil
}
