package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveLibrary string

// serveCmd runs the scheduler as a long-lived daemon: the 60s due-job
// ticker plus the optional periodic preset, until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler daemon, dispatching due and periodic backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(serveLibrary)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := a.sched.Start(ctx); err != nil {
			return err
		}
		a.log.Info("scheduler started")

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		a.log.Info("shutdown signal received, stopping scheduler")
		if err := a.sched.Stop(); err != nil {
			a.log.Error("scheduler stop failed", zap.Error(err))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveLibrary, "library", "", "directory of files to treat as the photo library (demo fixture source)")
}
