package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/pocketwatch/internal/budget"
	"github.com/Veraticus/pocketwatch/internal/cli"
	"github.com/Veraticus/pocketwatch/internal/model"
	"github.com/Veraticus/pocketwatch/internal/report"
	"github.com/spf13/cobra"
)

func budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage spending budgets",
	}

	cmd.AddCommand(budgetCreateCmd())
	cmd.AddCommand(budgetListCmd())
	cmd.AddCommand(budgetStatusCmd())
	cmd.AddCommand(budgetSpendCmd())
	cmd.AddCommand(budgetUpdateCmd())
	cmd.AddCommand(budgetRefreshCmd())
	cmd.AddCommand(budgetRolloverCmd())
	cmd.AddCommand(budgetDeleteCmd())

	return cmd
}

func budgetCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name> <category> <amount>",
		Short: "Create a budget for a spending category",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			period, _ := cmd.Flags().GetString("period")
			threshold, _ := cmd.Flags().GetFloat64("alert-threshold")
			rollover, _ := cmd.Flags().GetBool("rollover")
			startStr, _ := cmd.Flags().GetString("start")
			start, err := parseDate(startStr)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tracker := budget.NewTracker(store, slog.Default())
			b, err := tracker.Create(ctx, model.BudgetConfig{
				Name:           args[0],
				Category:       args[1],
				Amount:         amount,
				Period:         model.Period(period),
				StartDate:      start,
				AlertThreshold: threshold,
				RolloverUnused: rollover,
			})
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess("Created budget " + b.String()))
			fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("ID: %s, period ends %s",
				b.ID, b.EndDate.Format(time.DateOnly))))
			return nil
		},
	}

	cmd.Flags().String("period", "monthly", "Budget period (weekly, monthly, quarterly, yearly)")
	cmd.Flags().Float64("alert-threshold", 80, "Alert when spending reaches this percentage")
	cmd.Flags().Bool("rollover", false, "Roll unused budget into the next period")
	cmd.Flags().String("start", "", "Period start date (YYYY-MM-DD, default today)")

	return cmd
}

func budgetListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List budgets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			all, _ := cmd.Flags().GetBool("all")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tracker := budget.NewTracker(store, slog.Default())
			budgets, err := tracker.List(ctx, !all)
			if err != nil {
				return err
			}
			if len(budgets) == 0 {
				fmt.Println(cli.FormatInfo("No budgets yet."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPERIOD\tSPENT\tBUDGET\tUSED\tENDS")
			for i := range budgets {
				b := &budgets[i]
				fmt.Fprintf(w, "%.8s\t%s\t%s\t%s\t$%s\t$%s\t%.1f%%\t%s\n",
					b.ID,
					b.Name,
					b.Category,
					b.Period,
					b.CurrentSpent.StringFixed(2),
					b.Amount.StringFixed(2),
					b.SpentPercentage(),
					b.EndDate.Format(time.DateOnly))
			}
			return w.Flush()
		},
	}

	cmd.Flags().Bool("all", false, "Include inactive budgets")

	return cmd
}

func budgetUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a budget's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var update model.BudgetUpdate
			if cmd.Flags().Changed("name") {
				name, _ := cmd.Flags().GetString("name")
				update.Name = &name
			}
			if cmd.Flags().Changed("category") {
				category, _ := cmd.Flags().GetString("category")
				update.Category = &category
			}
			if cmd.Flags().Changed("amount") {
				amountStr, _ := cmd.Flags().GetString("amount")
				amount, err := parseAmount(amountStr)
				if err != nil {
					return err
				}
				update.Amount = &amount
			}
			if cmd.Flags().Changed("alert-threshold") {
				threshold, _ := cmd.Flags().GetFloat64("alert-threshold")
				update.AlertThreshold = &threshold
			}
			if cmd.Flags().Changed("rollover") {
				rollover, _ := cmd.Flags().GetBool("rollover")
				update.RolloverUnused = &rollover
			}
			if cmd.Flags().Changed("notes") {
				notes, _ := cmd.Flags().GetString("notes")
				update.Notes = &notes
			}
			if cmd.Flags().Changed("active") {
				active, _ := cmd.Flags().GetBool("active")
				update.IsActive = &active
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tracker := budget.NewTracker(store, slog.Default())
			b, err := tracker.Update(ctx, args[0], update)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess("Updated budget " + b.String()))
			return nil
		},
	}

	cmd.Flags().String("name", "", "New name")
	cmd.Flags().String("category", "", "New category")
	cmd.Flags().String("amount", "", "New cap amount")
	cmd.Flags().Float64("alert-threshold", 80, "New alert threshold percentage")
	cmd.Flags().Bool("rollover", false, "Roll unused budget into the next period")
	cmd.Flags().String("notes", "", "New notes")
	cmd.Flags().Bool("active", true, "Activate or deactivate the budget")

	return cmd
}

func budgetStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [id]",
		Short: "Show budget status, for one budget or all active ones",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tracker := budget.NewTracker(store, slog.Default())
			engine := report.NewEngine(store)

			var statuses []model.BudgetStatus
			if len(args) == 1 {
				status, err := tracker.Status(ctx, args[0])
				if err != nil {
					return err
				}
				statuses = []model.BudgetStatus{*status}
			} else {
				statuses, err = tracker.StatusAll(ctx)
				if err != nil {
					return err
				}
			}

			out, err := engine.BudgetStatuses(statuses)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
}

func budgetSpendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "spend <category> <amount>",
		Short: "Record spending against the budget for a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tracker := budget.NewTracker(store, slog.Default())
			b, err := tracker.RecordExpense(ctx, args[0], amount)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(b.String()))
			if b.IsOverBudget() {
				fmt.Println(cli.FormatError("Over budget by $" + b.RemainingAmount().Neg().StringFixed(2)))
			} else if b.AlertThresholdReached() {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("%.1f%% of budget used", b.SpentPercentage())))
			}
			return nil
		},
	}
}

func budgetRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <id>",
		Short: "Recompute a budget's spend from ledger transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tracker := budget.NewTracker(store, slog.Default())
			b, err := tracker.RefreshSpent(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess("Refreshed " + b.String()))
			return nil
		},
	}
}

func budgetRolloverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollover",
		Short: "Reset all budgets whose period has elapsed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tracker := budget.NewTracker(store, slog.Default())
			reset, err := tracker.ProcessRollovers(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			if len(reset) == 0 {
				fmt.Println(cli.FormatInfo("No budgets needed a reset."))
				return nil
			}
			for i := range reset {
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Reset %s, new period ends %s",
					reset[i].Name, reset[i].EndDate.Format(time.DateOnly))))
			}
			return nil
		},
	}
}

func budgetDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tracker := budget.NewTracker(store, slog.Default())
			if err := tracker.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Budget deleted."))
			return nil
		},
	}
}
