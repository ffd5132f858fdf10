package main

import (
	"fmt"

	"github.com/Veraticus/pocketwatch/internal/model"
	"github.com/Veraticus/pocketwatch/internal/report"
	"github.com/spf13/cobra"
)

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show financial summaries, category charts, and monthly trends",
		RunE:  runSummary,
	}

	cmd.Flags().String("from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().String("account", "", "Scope to an account")
	cmd.Flags().Bool("categories", false, "Show a spending-by-category chart")
	cmd.Flags().Bool("income-categories", false, "Show an income-by-category chart")
	cmd.Flags().Bool("trends", false, "Show month-by-month trends")
	cmd.Flags().Int("months", 12, "Number of months of trends")

	return cmd
}

func runSummary(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

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
	account, _ := cmd.Flags().GetString("account")
	categories, _ := cmd.Flags().GetBool("categories")
	incomeCategories, _ := cmd.Flags().GetBool("income-categories")
	trends, _ := cmd.Flags().GetBool("trends")
	months, _ := cmd.Flags().GetInt("months")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	engine := report.NewEngine(store)

	switch {
	case categories:
		out, err := engine.CategoryChart(ctx, model.TypeExpense, start, end)
		if err != nil {
			return err
		}
		fmt.Println(out)
	case incomeCategories:
		out, err := engine.CategoryChart(ctx, model.TypeIncome, start, end)
		if err != nil {
			return err
		}
		fmt.Println(out)
	case trends:
		out, err := engine.Trends(ctx, months)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		out, err := engine.Summary(ctx, start, end, account)
		if err != nil {
			return err
		}
		fmt.Println(out)
	}
	return nil
}
