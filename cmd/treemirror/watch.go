package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/viant/treemirror/service/mirror"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch [rootURL]",
	Short: "Mirror rootURL until interrupted",
	Long:  `Mirrors rootURL, or the persisted root when omitted, logging every sweep.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := newService(nil)
		if err != nil {
			return err
		}
		logger := srv.Logger()
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown failed", zap.Error(err))
			}
		}()

		unsubscribe := srv.Mirror().Subscribe(func(e mirror.SweepEvent) {
			fields := []zap.Field{zap.Int("sweep", e.Sweep), zap.Int("files", e.Files), zap.Int("folders", e.Folders), zap.Duration("took", e.Duration)}
			if e.Error != "" {
				logger.Warn("sweep failed", append(fields, zap.String("error", e.Error))...)
				return
			}
			logger.Info("sweep", fields...)
		})
		defer unsubscribe()

		if len(args) == 1 {
			err = srv.Init(ctx, args[0])
		} else {
			err = srv.Restore(ctx)
		}
		if err != nil {
			return err
		}
		srv.Start(ctx)

		if address := srv.Config().Metrics.Address; address != "" && srv.Metrics() != nil {
			server := &http.Server{Addr: address, Handler: metricsMux(srv.Metrics().Handler())}
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server failed", zap.Error(err))
				}
			}()
			defer server.Close()
			logger.Info("serving metrics", zap.String("address", address))
		}
		<-ctx.Done()
		logger.Info("stopping")
		return nil
	},
}

func metricsMux(handler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	return mux
}
