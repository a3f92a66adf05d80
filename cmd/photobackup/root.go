package main

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "photobackup",
	Short: "Personal photo backup engine",
	Long:  `photobackup syncs a photo library to a destination (S3, SMB, SFTP, or FTP), verifies what landed, and schedules recurring runs.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.toml)")
}
