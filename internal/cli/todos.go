package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"haru/internal/model"
)

func newTodosCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "todos",
		Short: "Scriptable todo operations against a running server",
	}
	cmd.AddCommand(newTodosListCmd(app))
	cmd.AddCommand(newTodosAddCmd(app))
	cmd.AddCommand(newTodosDoneCmd(app))
	cmd.AddCommand(newTodosRmCmd(app))
	return cmd
}

func newTodosListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all todos",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := app.toolClient()
			if err != nil {
				return err
			}
			todos, err := api.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, t := range todos {
				box := "[ ]"
				if t.Completed {
					box = "[x]"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s  %s\n", box, t.ID, t.Title)
			}
			all, active, completed := model.Counts(todos)
			fmt.Fprintf(cmd.OutOrStdout(), "%d total, %d active, %d completed\n", all, active, completed)
			return nil
		},
	}
}

func newTodosAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title>",
		Short: "Create a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := app.toolClient()
			if err != nil {
				return err
			}
			todo, err := api.Create(cmd.Context(), args[0], false)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s %q\n", todo.ID, todo.Title)
			return nil
		},
	}
}

func newTodosDoneCmd(app *App) *cobra.Command {
	var undone bool
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a todo completed (or active with --undo)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := app.toolClient()
			if err != nil {
				return err
			}
			completed := !undone
			todo, err := api.Update(cmd.Context(), args[0], model.Patch{Completed: &completed})
			if err != nil {
				return err
			}
			state := "completed"
			if !todo.Completed {
				state = "active"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %q is now %s\n", todo.ID, todo.Title, state)
			return nil
		},
	}
	cmd.Flags().BoolVar(&undone, "undo", false, "Mark active instead of completed")
	return cmd
}

func newTodosRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := app.toolClient()
			if err != nil {
				return err
			}
			if err := api.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
