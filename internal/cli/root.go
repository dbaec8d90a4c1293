package cli

import (
	"time"

	"github.com/spf13/cobra"

	"haru/internal/client"
	"haru/internal/config"
	"haru/internal/tui"
)

// toolTimeout is the fixed request timeout for the offline utilities
// (todos/export/import). The interactive TUI path carries no timeout.
const toolTimeout = 10 * time.Second

type App struct {
	ConfigPath string
	BaseURL    string

	cfg config.Config
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "haru",
		Short:        "Todos and weather in the terminal",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		path := app.ConfigPath
		if path == "" {
			path = config.ResolvePath()
		}
		cfg, err := config.LoadOrCreate(path)
		if err != nil {
			return err
		}
		app.ConfigPath = path
		app.cfg = cfg
		if app.BaseURL == "" {
			app.BaseURL = cfg.APIBaseURL
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Path to config file (default: $HARU_CONFIG or the user config dir)")
	cmd.PersistentFlags().StringVar(&app.BaseURL, "api", "", "Base URL of the haru server (default: from config)")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newTodosCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newWeatherCmd(app))

	return cmd
}

func runTUI(app *App) error {
	api, err := client.New(app.BaseURL)
	if err != nil {
		return err
	}
	return tui.Run(api, app.cfg, app.ConfigPath)
}

// toolClient returns a client with the fixed offline-utility timeout.
func (app *App) toolClient() (*client.Client, error) {
	return client.New(app.BaseURL, client.WithTimeout(toolTimeout))
}
