package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgPath    string
	edgeURL    string
	edgeAPIKey string
)

var rootCmd = &cobra.Command{
	Use:   "skycamctl",
	Short: "Operator tool for the skycam capture system",
	Long: `skycamctl manages an adaptive sky-camera installation: deploy capture
profiles to the edge device, inspect its state, preview schedule windows,
and fuse bracket sets by hand.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Load .env file if it exists
	godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "configs/config.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&edgeURL, "edge-url", os.Getenv("SKYCAM_EDGE_URL"), "Edge device URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&edgeAPIKey, "edge-api-key", os.Getenv("SKYCAM_EDGE_API_KEY"), "Edge API key (overrides config)")
}
