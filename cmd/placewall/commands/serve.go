package commands

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/brinehollow/placewall/internal/config"
	"github.com/brinehollow/placewall/internal/logging"
	"github.com/brinehollow/placewall/internal/plerrors"
	"github.com/brinehollow/placewall/internal/store"
	"github.com/brinehollow/placewall/internal/wsserver"
)

// ServeCmd starts the WebSocket server.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WebSocket server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")
	if err := logging.Initialize(jsonLogs, zapcore.InfoLevel); err != nil {
		return plerrors.Wrap(err, "initializing logger")
	}
	defer logging.Sync()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, v, err := config.Load(configFile)
	if err != nil {
		return plerrors.Wrap(err, "loading configuration")
	}

	st, err := store.Open(cfg.DBaseFile)
	if err != nil {
		return plerrors.Wrap(err, "opening database")
	}
	defer st.Close()

	ctx := context.Background()
	srv, err := wsserver.New(ctx, cfg, st)
	if err != nil {
		return plerrors.Wrap(err, "building server")
	}

	mux := http.NewServeMux()
	mux.Handle("/", srv)
	httpServer := &http.Server{Addr: cfg.ListenURL, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logging.Logger.Infow("listening", "addr", cfg.ListenURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	runErr := srv.Run(ctx, v)

	_ = httpServer.Close()
	if runErr != nil {
		return runErr
	}
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
