package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"haru/internal/server"
	"haru/internal/storage"
	"haru/internal/weather"
)

func newServeCmd(app *App) *cobra.Command {
	var (
		addr   string
		dbPath string
		memory bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST facade over the record store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = app.cfg.ListenAddr
			}
			if dbPath == "" {
				dbPath = app.cfg.DBPath
			}

			var store storage.Store
			if memory {
				store = storage.NewMemory()
			} else {
				s, err := storage.Open(dbPath)
				if err != nil {
					return err
				}
				store = s
			}
			defer store.Close()

			srv := server.New(store, server.WithWeather(weather.New()))
			httpSrv := &http.Server{
				Addr:    addr,
				Handler: srv.Handler(),
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Printf("haru server listening on http://%s", addr)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: from config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the sqlite database (default: from config)")
	cmd.Flags().BoolVar(&memory, "memory", false, "Keep records in memory only")

	return cmd
}
