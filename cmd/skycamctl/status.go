package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/your-org/skycam/internal/config"
	"github.com/your-org/skycam/pkg/dto"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the edge device's mode and resident profile",
	RunE:  runStatus,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the resident profile, returning the edge to live orchestration",
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(clearCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client := newEdgeClient(cfg)

	meter, meterErr := client.Meter(cmd.Context())
	profile, profileErr := client.QueryProfile(cmd.Context())

	if meterErr != nil {
		fmt.Printf("Camera:  unavailable (%v)\n", meterErr)
	} else {
		fmt.Printf("Camera:  ready, %.1f lux (suggests ISO %d @ %s)\n",
			meter.BrightnessLux, meter.SuggestedSensitivity, meter.SuggestedShutter)
	}

	if profileErr != nil {
		return fmt.Errorf("query profile: %w", profileErr)
	}

	switch profile.Status {
	case dto.ProfileStatusDeployed:
		fmt.Printf("Mode:    deployed-profile\n")
		fmt.Printf("Profile: %s (version %s)\n", profile.ProfileID, profile.Version)
		fmt.Printf("Since:   %s (%s ago)\n",
			profile.DeployedAt.Format(time.RFC3339),
			(time.Duration(profile.AgeSeconds) * time.Second).String())
		fmt.Printf("Schedules: %v\n", profile.Schedules)
	default:
		fmt.Printf("Mode:    live-orchestration (no profile deployed)\n")
	}
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := newEdgeClient(cfg).ClearProfile(cmd.Context()); err != nil {
		return fmt.Errorf("clear profile: %w", err)
	}
	fmt.Println("Resident profile cleared; edge is in live-orchestration mode")
	return nil
}
