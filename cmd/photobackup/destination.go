package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/photobackup/engine/internal/domain"
)

var destinationCmd = &cobra.Command{
	Use:   "destination",
	Short: "Manage backup destinations",
}

var (
	destName       string
	destType       string
	destConfigJSON string
)

var destinationAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new destination",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("")
		if err != nil {
			return err
		}
		defer a.Close()

		dest := domain.Destination{
			ID:         uuid.NewString(),
			Name:       destName,
			Type:       domain.DestinationType(destType),
			ConfigBlob: []byte(destConfigJSON),
			CreatedAt:  time.Now(),
		}
		if err := a.catalog.CreateDestination(context.Background(), dest); err != nil {
			return err
		}
		fmt.Println(dest.ID)
		return nil
	},
}

var destinationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered destinations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("")
		if err != nil {
			return err
		}
		defer a.Close()

		dests, err := a.catalog.ListDestinations(context.Background())
		if err != nil {
			return err
		}
		for _, d := range dests {
			fmt.Printf("%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Type, d.HealthStatus)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(destinationCmd)
	destinationCmd.AddCommand(destinationAddCmd, destinationListCmd)

	destinationAddCmd.Flags().StringVar(&destName, "name", "", "destination display name")
	destinationAddCmd.Flags().StringVar(&destType, "type", "", "destination type (s3, smb, sftp, ftp)")
	destinationAddCmd.Flags().StringVar(&destConfigJSON, "config", "", "JSON-encoded connection config")
	_ = destinationAddCmd.MarkFlagRequired("name")
	_ = destinationAddCmd.MarkFlagRequired("type")
	_ = destinationAddCmd.MarkFlagRequired("config")
}
