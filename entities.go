package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/planea-app/planea-go/internal/entity"
)

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a local entity (pushed on the next sync)",
	}

	cmd.AddCommand(newAddTaskCmd())
	cmd.AddCommand(newAddGoalCmd())
	cmd.AddCommand(newAddAccountCmd())

	return cmd
}

func newAddTaskCmd() *cobra.Command {
	var (
		goalID   string
		parentID string
		taskType string
		scope    string
		amount   float64
		date     string
		titleRow bool
	)

	cmd := &cobra.Command{
		Use:   "task <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			task := entity.NewTask(args[0])
			task.GoalID = goalID
			task.ParentID = parentID

			if titleRow {
				task.Kind = entity.TaskKindTitle
			}

			if taskType != "" {
				task.Type = entity.TaskType(taskType)
			}

			if scope != "" {
				task.Scope = entity.Scope(scope)
			}

			if cmd.Flags().Changed("amount") {
				task.AmountEUR = amount
			}

			if date != "" {
				task.Recurrence.Date = date
			}

			// New tasks land after the last sibling.
			var lastOrder float64

			for _, sibling := range a.store.Tasks() {
				if sibling.ParentID == task.ParentID && sibling.Order > lastOrder {
					lastOrder = sibling.Order
				}
			}

			task.Order = entity.OrderAfter(lastOrder)

			if err := a.store.Set(cmd.Context(), entity.KindTask, task); err != nil {
				return err
			}

			statusf("created task %s\n", task.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&goalID, "goal", "", "containing goal id")
	cmd.Flags().StringVar(&parentID, "parent", "", "parent task id")
	cmd.Flags().StringVar(&taskType, "type", "", "task type (ACTIVIDAD, INGRESO, GASTO)")
	cmd.Flags().StringVar(&scope, "scope", "", "activity scope (work, physical, growth)")
	cmd.Flags().Float64Var(&amount, "amount", 0, "amount in EUR for income/expense tasks")
	cmd.Flags().StringVar(&date, "date", "", "scheduled date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&titleRow, "title-row", false, "create a TITLE marker row")

	return cmd
}

func newAddGoalCmd() *cobra.Command {
	var (
		horizon  string
		shortcut string
	)

	cmd := &cobra.Command{
		Use:   "goal <title>",
		Short: "Create a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			goal := entity.NewGoal(args[0])

			if horizon != "" {
				goal.Horizon = entity.Horizon(horizon)
			}

			if shortcut != "" {
				goal.ApplyShortcut(entity.HorizonShortcut(shortcut), time.Now())
			}

			if err := a.store.Set(cmd.Context(), entity.KindGoal, goal); err != nil {
				return err
			}

			statusf("created goal %s\n", goal.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&horizon, "horizon", "", "horizon (SHORT, MEDIUM, LONG)")
	cmd.Flags().StringVar(&shortcut, "shortcut", "", "horizon shortcut (1M, 3M, 6M, 9M, 1Y, 3Y, 5Y, 10Y)")

	return cmd
}

func newAddAccountCmd() *cobra.Command {
	var balance float64

	cmd := &cobra.Command{
		Use:   "account <name>",
		Short: "Create a bank account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			acct := entity.NewAccount(args[0])

			if cmd.Flags().Changed("balance") {
				acct.BalanceEUR = balance
			}

			if err := a.store.Set(cmd.Context(), entity.KindAccount, acct); err != nil {
				return err
			}

			statusf("created account %s\n", acct.ID)

			return nil
		},
	}

	cmd.Flags().Float64Var(&balance, "balance", 0, "starting balance in EUR")

	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "ls <kind>",
		Short:     "List local entities of a kind",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kindNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := entity.Kind(args[0])
			if !entity.ValidKind(kind) {
				return fmt.Errorf("unknown kind %q (one of %v)", args[0], kindNames())
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			entities := a.store.List(kind)

			if flagJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")

				return enc.Encode(entities)
			}

			for _, e := range entities {
				fmt.Printf("%s  %s\n", e.EntityID(), describe(e))
			}

			return nil
		},
	}
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <kind> <id>",
		Short: "Delete a local entity (tombstone pushed on the next sync)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := entity.Kind(args[0])
			if !entity.ValidKind(kind) {
				return fmt.Errorf("unknown kind %q (one of %v)", args[0], kindNames())
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.Delete(cmd.Context(), kind, args[1]); err != nil {
				return err
			}

			statusf("deleted %s/%s\n", kind, args[1])

			return nil
		},
	}
}

// describe returns a one-line human summary of an entity for ls output.
func describe(e entity.Entity) string {
	switch v := e.(type) {
	case *entity.Task:
		label := v.Title
		if v.Done {
			label = "[done] " + label
		}

		if v.Type.Financial() {
			label = fmt.Sprintf("%s (%.2f EUR)", label, v.AmountEUR)
		}

		return label
	case *entity.Goal:
		return fmt.Sprintf("%s [%s]", v.Title, v.Horizon)
	case *entity.Account:
		return fmt.Sprintf("%s (%.2f EUR)", v.Name, v.BalanceEUR)
	case *entity.ForecastLine:
		return fmt.Sprintf("%s %s (%.2f EUR/month)", v.Name, v.Type, v.MonthlyEUR)
	case *entity.Movement:
		return fmt.Sprintf("%s %s (%.2f EUR)", v.Date, v.Concept, v.AmountEUR)
	default:
		return ""
	}
}

func kindNames() []string {
	kinds := entity.Kinds()
	names := make([]string, len(kinds))

	for i, k := range kinds {
		names[i] = string(k)
	}

	return names
}
