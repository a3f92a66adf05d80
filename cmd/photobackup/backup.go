package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/photobackup/engine/internal/domain"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Run and control backup jobs",
}

var (
	backupDestID  string
	backupFilter  string
	backupJobID   string
	backupLibrary string
)

var backupRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a backup job against a destination",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(backupLibrary)
		if err != nil {
			return err
		}
		defer a.Close()

		job, err := a.engine.Start(context.Background(), backupDestID, domain.DateRangeFilter(backupFilter))
		if err != nil {
			return err
		}

		fmt.Println(job.ID)
		waitForTerminal(a, job.ID)
		return nil
	},
}

var backupPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the running job",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("")
		if err != nil {
			return err
		}
		defer a.Close()
		return a.engine.Pause(backupJobID)
	},
}

var backupResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused job",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("")
		if err != nil {
			return err
		}
		defer a.Close()
		return a.engine.Resume(backupJobID)
	},
}

var backupCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the running job",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("")
		if err != nil {
			return err
		}
		defer a.Close()
		return a.engine.Cancel(backupJobID)
	},
}

var backupStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the current job's status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("")
		if err != nil {
			return err
		}
		defer a.Close()

		job, ok := a.engine.CurrentJob()
		if !ok {
			fmt.Println("no active job")
			return nil
		}
		printJob(job)
		return nil
	},
}

// waitForTerminal polls CurrentJob until the just-started job leaves the
// running/paused states, since backup run launches the pipeline in its
// own goroutine and returns immediately.
func waitForTerminal(a *app, jobID string) {
	for {
		job, ok := a.engine.CurrentJob()
		if !ok || job.ID != jobID {
			return
		}
		if job.Status != domain.JobStatusRunning && job.Status != domain.JobStatusPaused {
			printJob(job)
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func printJob(job domain.SyncJob) {
	fmt.Printf("job %s: %s (scanned=%d synced=%d failed=%d bytes=%d)\n",
		job.ID, job.Status, job.PhotosScanned, job.PhotosSynced, job.PhotosFailed, job.BytesTransferred)
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupRunCmd, backupPauseCmd, backupResumeCmd, backupCancelCmd, backupStatusCmd)

	backupRunCmd.Flags().StringVar(&backupDestID, "dest", "", "destination ID to back up to")
	backupRunCmd.Flags().StringVar(&backupFilter, "filter", string(domain.FilterFullLibrary), "date-range filter (fullLibrary, last24h, last7d, last30d, last90d)")
	backupRunCmd.Flags().StringVar(&backupLibrary, "library", "", "directory of files to treat as the photo library (demo fixture source)")
	_ = backupRunCmd.MarkFlagRequired("dest")

	for _, c := range []*cobra.Command{backupPauseCmd, backupResumeCmd, backupCancelCmd} {
		c.Flags().StringVar(&backupJobID, "job", "", "job ID")
		_ = c.MarkFlagRequired("job")
	}
}
