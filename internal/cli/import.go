package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"haru/internal/model"
)

func newImportCmd(app *App) *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import todos from a JSON file",
		Long: `Import reads a JSON array of todo records (the export format) and posts
each one to the server. Ids are reassigned server-side; creation times are
preserved when present.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if in == "" || in == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(in)
			}
			if err != nil {
				return err
			}

			var todos []model.Todo
			if err := json.Unmarshal(data, &todos); err != nil {
				return fmt.Errorf("parse import file: %w", err)
			}

			api, err := app.toolClient()
			if err != nil {
				return err
			}

			imported := 0
			for _, t := range todos {
				if _, err := api.CreateRecord(cmd.Context(), t); err != nil {
					return fmt.Errorf("import %q: %w (%d of %d imported)", t.Title, err, imported, len(todos))
				}
				imported++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d todos\n", imported)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "Input file (default: stdin)")
	return cmd
}
