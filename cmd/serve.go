package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bds-unify/internal/api"
	"github.com/sells-group/bds-unify/internal/report"
)

var (
	servePort int
	serveFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the latest unified dataset over a read-only JSON API",
	Long:  "Serves the latest unified dataset. Send SIGHUP to reload it after a new unify run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := api.NewServer(datasetPath(), cfg.Server.CORSOrigins)
		if err := srv.Reload(); err != nil {
			return err
		}

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		go reloadOnSignal(ctx, srv, hup)

		return listenAndServe(ctx, fmt.Sprintf(":%d", cfg.Server.Port), srv.Handler())
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveFile, "file", "", "unified JSON document to serve (default: latest in output dir)")
	rootCmd.AddCommand(serveCmd)
}

func datasetPath() string {
	if serveFile != "" {
		return serveFile
	}
	return filepath.Join(cfg.Output.Dir, report.LatestFile)
}

func reloadOnSignal(ctx context.Context, srv *api.Server, sig <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			if err := srv.Reload(); err != nil {
				zap.L().Error("reload failed, keeping previous dataset", zap.Error(err))
			}
		}
	}
}

// listenAndServe runs an HTTP server until ctx is cancelled, then shuts it
// down gracefully.
func listenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}
