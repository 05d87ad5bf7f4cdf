package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/viant/treemirror"
	"github.com/viant/treemirror/model/task"
	"github.com/viant/treemirror/service/action/extract"
	"go.uber.org/zap"
)

var installOptions struct {
	root       string
	dest       string
	name       string
	md5        string
	marker     string
	markerData string
}

var installCmd = &cobra.Command{
	Use:   "install <url>",
	Short: "Download an archive and extract it into the mirrored tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := newService(func(cfg *treemirror.Config) {
			cfg.Tree.Scheduled = false
		})
		if err != nil {
			return err
		}
		logger := srv.Logger()
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		defer srv.Shutdown(context.Background())

		if installOptions.root != "" {
			err = srv.Init(ctx, installOptions.root)
		} else {
			err = srv.Restore(ctx)
		}
		if err != nil {
			return err
		}
		srv.Start(ctx)

		done := make(chan task.Info, 4)
		request := treemirror.InstallRequest{
			URL:    args[0],
			Dest:   installOptions.dest,
			Name:   installOptions.name,
			MD5:    installOptions.md5,
			Marker: installOptions.marker,
			OnStatus: func(info task.Info) {
				if info.Status == task.Failed || (info.Kind == extract.Kind && info.Status == task.Completed) {
					done <- info
				}
			},
			OnProgress: func(info task.Info) {
				logger.Info("progress", zap.String("task", info.Kind), zap.Int("percent", info.Progress))
			},
		}
		if installOptions.markerData != "" {
			request.MarkerData = []byte(installOptions.markerData)
		}
		if _, err = srv.Install(ctx, request); err != nil {
			return err
		}
		select {
		case info := <-done:
			if info.Status == task.Failed {
				return errors.New(info.Kind + " failed: " + info.Error)
			}
			logger.Info("installed", zap.String("url", args[0]), zap.String("dest", installOptions.dest))
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	},
}

func init() {
	flags := installCmd.Flags()
	flags.StringVar(&installOptions.root, "root", "", "root URL to mirror; the persisted root when empty")
	flags.StringVar(&installOptions.dest, "dest", "", "tree folder receiving the archive entries")
	flags.StringVar(&installOptions.name, "name", "", "archive file name")
	flags.StringVar(&installOptions.md5, "md5", "", "expected MD5 hex digest")
	flags.StringVar(&installOptions.marker, "marker", "", "marker file written into dest")
	flags.StringVar(&installOptions.markerData, "marker-data", "", "marker file content")
	_ = installCmd.MarkFlagRequired("dest")
}
