package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/pocketwatch/internal/cli"
	"github.com/Veraticus/pocketwatch/internal/goal"
	"github.com/Veraticus/pocketwatch/internal/model"
	"github.com/Veraticus/pocketwatch/internal/report"
	"github.com/spf13/cobra"
)

func goalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Manage savings goals",
	}

	cmd.AddCommand(goalCreateCmd())
	cmd.AddCommand(goalListCmd())
	cmd.AddCommand(goalContributeCmd())
	cmd.AddCommand(goalProgressCmd())
	cmd.AddCommand(goalUpdateCmd())
	cmd.AddCommand(goalAutoCmd())
	cmd.AddCommand(goalDeleteCmd())

	return cmd
}

func goalCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name> <target-amount> <target-date>",
		Short: "Create a savings goal with milestones at 25/50/75/100%",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			target, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			targetDate, err := parseDate(args[2])
			if err != nil {
				return err
			}
			goalType, _ := cmd.Flags().GetString("type")
			priority, _ := cmd.Flags().GetString("priority")
			description, _ := cmd.Flags().GetString("description")
			category, _ := cmd.Flags().GetString("category")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tracker := goal.NewTracker(store, slog.Default())
			g, err := tracker.Create(ctx, model.GoalConfig{
				Name:         args[0],
				TargetAmount: target,
				TargetDate:   targetDate,
				GoalType:     model.GoalType(goalType),
				Priority:     model.Priority(priority),
				Description:  description,
				Category:     category,
			})
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess("Created goal " + g.String()))
			fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("ID: %s, target date %s",
				g.ID, g.TargetDate.Format(time.DateOnly))))
			return nil
		},
	}

	cmd.Flags().String("type", "savings", "Goal type (savings, debt_payoff, investment, purchase)")
	cmd.Flags().String("priority", "medium", "Priority (low, medium, high, critical)")
	cmd.Flags().StringP("description", "d", "", "What the goal is for")
	cmd.Flags().String("category", "", "Related spending category")

	return cmd
}

func goalListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			all, _ := cmd.Flags().GetBool("all")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tracker := goal.NewTracker(store, slog.Default())
			goals, err := tracker.List(ctx, !all)
			if err != nil {
				return err
			}
			if len(goals) == 0 {
				fmt.Println(cli.FormatInfo("No goals yet."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tPRIORITY\tSAVED\tTARGET\tPROGRESS\tTARGET DATE")
			for i := range goals {
				g := &goals[i]
				fmt.Fprintf(w, "%.8s\t%s\t%s\t%s\t$%s\t$%s\t%.1f%%\t%s\n",
					g.ID,
					g.Name,
					g.GoalType,
					g.Priority,
					g.CurrentAmount.StringFixed(2),
					g.TargetAmount.StringFixed(2),
					g.ProgressPercentage(),
					g.TargetDate.Format(time.DateOnly))
			}
			return w.Flush()
		},
	}

	cmd.Flags().Bool("all", false, "Include inactive goals")

	return cmd
}

func goalUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a goal's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var update model.GoalUpdate
			if cmd.Flags().Changed("name") {
				name, _ := cmd.Flags().GetString("name")
				update.Name = &name
			}
			if cmd.Flags().Changed("description") {
				description, _ := cmd.Flags().GetString("description")
				update.Description = &description
			}
			if cmd.Flags().Changed("target-date") {
				dateStr, _ := cmd.Flags().GetString("target-date")
				date, err := parseDate(dateStr)
				if err != nil {
					return err
				}
				update.TargetDate = &date
			}
			if cmd.Flags().Changed("category") {
				category, _ := cmd.Flags().GetString("category")
				update.Category = &category
			}
			if cmd.Flags().Changed("priority") {
				priorityStr, _ := cmd.Flags().GetString("priority")
				priority := model.Priority(priorityStr)
				update.Priority = &priority
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

			tracker := goal.NewTracker(store, slog.Default())
			g, err := tracker.Update(ctx, args[0], update)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess("Updated goal " + g.String()))
			return nil
		},
	}

	cmd.Flags().String("name", "", "New name")
	cmd.Flags().StringP("description", "d", "", "New description")
	cmd.Flags().String("target-date", "", "New target date (YYYY-MM-DD)")
	cmd.Flags().String("category", "", "New category")
	cmd.Flags().String("priority", "", "New priority (low, medium, high, critical)")
	cmd.Flags().String("notes", "", "New notes")
	cmd.Flags().Bool("active", true, "Activate or deactivate the goal")

	return cmd
}

func goalContributeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contribute <id> <amount>",
		Short: "Record a contribution toward a goal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			description, _ := cmd.Flags().GetString("description")
			dateStr, _ := cmd.Flags().GetString("date")
			date, err := parseDate(dateStr)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tracker := goal.NewTracker(store, slog.Default())
			g, achieved, err := tracker.Contribute(ctx, args[0], amount, description, date)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(g.String()))
			for _, milestone := range achieved {
				fmt.Println(cli.StyleSuccess(cli.TargetIcon + " Milestone reached: " + milestone.Name))
			}
			if g.IsCompleted() {
				fmt.Println(cli.StyleSuccess(cli.TargetIcon + " Goal completed!"))
			}
			return nil
		},
	}

	cmd.Flags().StringP("description", "d", "", "What the contribution was")
	cmd.Flags().String("date", "", "Contribution date (YYYY-MM-DD, default today)")

	return cmd
}

func goalProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress [id]",
		Short: "Show goal progress, for one goal or all active ones",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tracker := goal.NewTracker(store, slog.Default())
			engine := report.NewEngine(store)

			var statuses []model.GoalStatus
			if len(args) == 1 {
				status, err := tracker.Progress(ctx, args[0])
				if err != nil {
					return err
				}
				statuses = []model.GoalStatus{*status}
			} else {
				statuses, err = tracker.ProgressAll(ctx)
				if err != nil {
					return err
				}
			}

			out, err := engine.GoalStatuses(statuses)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
}

func goalAutoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auto",
		Short: "Apply scheduled automatic contributions that are due",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tracker := goal.NewTracker(store, slog.Default())
			contributed, err := tracker.ProcessAutoContributions(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			if len(contributed) == 0 {
				fmt.Println(cli.FormatInfo("No automatic contributions were due."))
				return nil
			}
			for i := range contributed {
				fmt.Println(cli.FormatSuccess("Contributed to " + contributed[i].String()))
			}
			return nil
		},
	}
}

func goalDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tracker := goal.NewTracker(store, slog.Default())
			if err := tracker.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Goal deleted."))
			return nil
		},
	}
}
