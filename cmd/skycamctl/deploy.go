package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/your-org/skycam/internal/config"
	"github.com/your-org/skycam/internal/edgeclient"
)

var deployCmd = &cobra.Command{
	Use:   "deploy <profile-id>",
	Short: "Push a configured capture profile to the edge device",
	Long: `Builds the deployment payload for a profile defined in the config file
and pushes it to the edge device, switching it to deployed-profile mode.
Redeploying the same profile version refreshes its timestamp without
interrupting capture.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	id := args[0]
	profile, ok := cfg.Profile(id)
	if !ok {
		return fmt.Errorf("profile %q not found in config", id)
	}

	schedules := cfg.SchedulesForProfile(id)
	if len(schedules) == 0 {
		fmt.Printf("Warning: no schedules reference profile %q\n", id)
	}

	client := newEdgeClient(cfg)
	req := edgeclient.BuildDeployRequest(profile, schedules)
	if err := client.DeployProfile(cmd.Context(), req); err != nil {
		return fmt.Errorf("deploy to edge: %w", err)
	}

	fmt.Printf("Deployed profile %s (version %s) with %d schedule(s)\n",
		profile.ID, profile.Version, len(schedules))
	return nil
}

func newEdgeClient(cfg *config.Config) *edgeclient.Client {
	url := cfg.Brain.EdgeURL
	if edgeURL != "" {
		url = edgeURL
	}
	key := cfg.Brain.EdgeAPIKey
	if edgeAPIKey != "" {
		key = edgeAPIKey
	}
	return edgeclient.New(url, key)
}
